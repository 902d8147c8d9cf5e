package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"billow/internal/logger"
	"billow/pkg/models"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Upsert an identity-provider user into the backend",
	Long: `Sync the current identity-provider user into the Billow backend.
The backend creates the user on first sync and updates the profile on
later ones; the returned backend user id is what BILLOW_USER_ID
should be set to for all other commands.`,
	Example: `  billow login --external-id usr_2ab... --email me@example.com --name "Jo Doe"`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().String("external-id", "", "Identity provider user id")
	loginCmd.Flags().String("email", "", "User email")
	loginCmd.Flags().String("name", "", "Display name")
	loginCmd.Flags().String("avatar", "", "Avatar image URL")
}

func runLogin(cmd *cobra.Command, args []string) error {
	client, _, err := newResourceClient(false)
	if err != nil {
		return err
	}

	externalID, _ := cmd.Flags().GetString("external-id")
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	avatar, _ := cmd.Flags().GetString("avatar")

	if externalID == "" || email == "" {
		return fmt.Errorf("--external-id and --email are required")
	}

	resp, err := client.SyncUser(cmd.Context(), models.SyncUserRequest{
		ExternalID:   externalID,
		Email:        email,
		DisplayName:  name,
		ProfileImage: avatar,
	})
	if err != nil {
		return fmt.Errorf("user sync failed: %w (%s)", err, retryHint(err))
	}

	log := logger.WithUserID(resp.User.ID)
	log.Info().
		Bool("is_new", resp.IsNew).
		Msg("User synced")

	if resp.IsNew {
		fmt.Printf("Created user %s.\n", resp.User.ID)
	} else {
		fmt.Printf("Updated user %s.\n", resp.User.ID)
	}
	fmt.Printf("Set BILLOW_USER_ID=%s to use the other commands.\n", resp.User.ID)
	return nil
}
