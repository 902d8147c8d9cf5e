package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	stdsync "sync"

	"github.com/go-playground/validator/v10"
)

// ErrMutationInFlight is returned when a second submit is attempted
// while one is pending. The second attempt is rejected, not queued.
var ErrMutationInFlight = errors.New("a mutation is already in flight")

// FieldError is one local validation failure, addressed to a specific
// form field.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// ValidationError aggregates the field-level failures of one submit
// attempt. It never leaves the coordinator's local scope as anything
// but a returned value, and it is never sent to the network.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// SubmitFunc performs the network mutation for a validated payload.
type SubmitFunc[Req any] func(ctx context.Context, req Req) error

// Coordinator executes create/update mutations against one owning
// collection: validate locally, submit, then force-refresh the
// collection's entry so the visible list reflects the write before
// Submit returns. There is no optimistic local patching; the backend
// computes derived fields the client cannot safely recompute.
type Coordinator[Req any, P Params, T any] struct {
	validate *validator.Validate
	submit   SubmitFunc[Req]
	list     *Entry[P, T]

	mu       stdsync.Mutex
	inFlight bool
}

// NewCoordinator builds a coordinator submitting through submit and
// refreshing list after successful writes.
func NewCoordinator[Req any, P Params, T any](submit SubmitFunc[Req], list *Entry[P, T]) *Coordinator[Req, P, T] {
	return &Coordinator[Req, P, T]{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		submit:   submit,
		list:     list,
	}
}

// Submit runs validate -> submit -> refetch, each step waiting on the
// previous one. Local validation failures return a *ValidationError
// without any network call. listParams is the tuple the owning list
// is currently displaying, so the refetch lands on the visible view.
func (c *Coordinator[Req, P, T]) Submit(ctx context.Context, req Req, listParams P) error {
	if err := c.validateLocal(req); err != nil {
		return err
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrMutationInFlight
	}
	c.inFlight = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	if err := c.submit(ctx, req); err != nil {
		// Prior list state stays untouched; the caller surfaces the
		// error with a retry affordance. No automatic retry.
		return err
	}

	c.list.ForceRefresh(ctx, listParams)
	snap, err := c.list.Settled(ctx)
	if err != nil {
		return err
	}
	if snap.State == StateFailed {
		return fmt.Errorf("mutation applied but list refresh failed: %w", snap.Err)
	}
	return nil
}

func (c *Coordinator[Req, P, T]) validateLocal(req Req) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, FieldError{
			Field:   v.Field(),
			Rule:    v.Tag(),
			Message: fieldMessage(v),
		})
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", v.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", v.Field())
	case "gte":
		return fmt.Sprintf("%s must not be negative", v.Field())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", v.Field(), v.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a %s date", v.Field(), v.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", v.Field(), v.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", v.Field(), v.Tag())
	}
}
