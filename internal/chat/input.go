package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"

	"github.com/planwise/planwise/internal/planner"
)

// MaxMessageLength is the longest accepted user message, in characters.
const MaxMessageLength = 4000

// TurnInput is one inbound user message.
type TurnInput struct {
	Message        string      `json:"message" validate:"notblank"`
	ConversationID string      `json:"conversation_id,omitempty" validate:"omitempty,uuid"`
	Event          *EventInput `json:"event,omitempty"`
	// Referer is the caller's origin, forwarded to the completion provider.
	Referer string `json:"-"`
}

// EventInput carries optional structured plan details. Nil fields leave the
// plan untouched.
type EventInput struct {
	Name        *string          `json:"name,omitempty" validate:"omitnil,min=1,max=120"`
	Location    *string          `json:"location,omitempty" validate:"omitnil,min=1,max=120"`
	Description *string          `json:"description,omitempty" validate:"omitnil,max=2000"`
	TotalBudget *decimal.Decimal `json:"total_budget,omitempty"`
	Currency    *string          `json:"currency,omitempty" validate:"omitnil,len=3,alpha"`
	PlannedDate *Date            `json:"planned_date,omitempty"`
}

// Hints converts the input to plan hints.
func (e *EventInput) Hints() *planner.Hints {
	if e == nil {
		return nil
	}
	h := &planner.Hints{
		Name:        e.Name,
		Description: e.Description,
		Location:    e.Location,
		TotalBudget: e.TotalBudget,
	}
	if e.PlannedDate != nil {
		t := e.PlannedDate.Time
		h.PlannedDate = &t
	}
	if e.Currency != nil {
		c := strings.ToUpper(*e.Currency)
		h.Currency = &c
	}
	return h
}

// dateLayout is the calendar-date form accepted next to RFC 3339.
const dateLayout = "2006-01-02"

// Date is a planned event date. It decodes from either "2006-01-02" or a full
// RFC 3339 timestamp and encodes as RFC 3339.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("planned_date: %w", err)
	}
	t, err := ParseDate(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp. Calendar dates
// resolve to midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("planned_date: want %s or RFC 3339, got %q", dateLayout, raw)
	}
	return t, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) validateTurn(in TurnInput) error {
	if err := s.validate.Struct(in); err != nil {
		return toValidationError(err)
	}
	if utf8.RuneCountInString(in.Message) > MaxMessageLength {
		return &ValidationError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", MaxMessageLength)}
	}
	if in.Event != nil && in.Event.TotalBudget != nil {
		b := *in.Event.TotalBudget
		if b.IsNegative() {
			return &ValidationError{Field: "event.total_budget", Message: "must be zero or greater"}
		}
		if !planner.AmountInRange(b) {
			return &ValidationError{Field: "event.total_budget", Message: "must be less than " + planner.MaxAmount.String()}
		}
	}
	return nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "TurnInput.")
	return &ValidationError{Field: field, Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "uuid":
		return "must be a valid id"
	case "alpha":
		return "must contain letters only"
	default:
		return "is invalid"
	}
}
