package checkout

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"pizzaria-orderplane/pkg/errutil"
	"pizzaria-orderplane/services/order"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ActiveSteps returns the step list for the current flow state. It is
// recomputed on every call; changing delivery type or payment method
// mid-checkout changes the path, never leaves stale steps behind.
func (s Settings) ActiveSteps(req SubmitRequest) []string {
	steps := []string{StepContact, StepDelivery}

	if req.DeliveryType == order.DeliveryTypeDelivery {
		steps = append(steps, StepAddress)
	}
	if s.SchedulingEnabled && req.IsScheduled {
		steps = append(steps, StepSchedule)
	}

	steps = append(steps, StepPayment)

	if req.PaymentMethod == order.PaymentPix {
		steps = append(steps, StepPix)
	}

	return append(steps, StepConfirmation)
}

// ValidateStep checks one step's inputs against the flow rules.
func (s Settings) ValidateStep(step string, req SubmitRequest) error {
	switch step {
	case StepContact:
		return s.validateContact(req.Contact)
	case StepDelivery:
		return s.validateDelivery(req)
	case StepAddress:
		return s.validateAddress(req.Address)
	case StepSchedule:
		return s.validateSchedule(req)
	case StepPayment:
		return s.validatePayment(req)
	case StepPix:
		return s.validatePix(req)
	case StepConfirmation:
		return s.validateCart(req.Items)
	default:
		return errutil.BadRequest(fmt.Sprintf("unknown checkout step %q", step), nil)
	}
}

// ValidateAll walks the active step list in order.
func (s Settings) ValidateAll(req SubmitRequest) error {
	for _, step := range s.ActiveSteps(req) {
		if err := s.ValidateStep(step, req); err != nil {
			return err
		}
	}
	return nil
}

// validateCart rejects lines that would shrink the server-side subtotal.
func (s Settings) validateCart(items []CartItem) error {
	if len(items) == 0 {
		return errutil.ValidationFailed("cart is empty", nil)
	}

	var details []errutil.Detail
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			details = append(details, errutil.Detail{
				Field: fmt.Sprintf("items[%d].name", i), Message: "name is required"})
		}
		if item.Quantity < 1 {
			details = append(details, errutil.Detail{
				Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be at least 1"})
		}
		if item.UnitPrice < 0 {
			details = append(details, errutil.Detail{
				Field: fmt.Sprintf("items[%d].unit_price", i), Message: "unit price cannot be negative"})
		}
	}

	if len(details) > 0 {
		return errutil.ValidationFailed("cart has invalid items", nil, errutil.WithDetails(details...))
	}
	return nil
}

func (s Settings) validateContact(c Contact) error {
	var details []errutil.Detail

	if strings.TrimSpace(c.Name) == "" {
		details = append(details, errutil.Detail{Field: "name", Message: "name is required"})
	}
	if len(digitsOf(c.Phone)) < 10 {
		details = append(details, errutil.Detail{Field: "phone", Message: "phone must have at least 10 digits"})
	}
	if !emailPattern.MatchString(strings.TrimSpace(c.Email)) {
		details = append(details, errutil.Detail{Field: "email", Message: "email is invalid"})
	}

	if len(details) > 0 {
		return errutil.ValidationFailed("contact step incomplete", nil, errutil.WithDetails(details...))
	}
	return nil
}

func (s Settings) validateDelivery(req SubmitRequest) error {
	switch req.DeliveryType {
	case order.DeliveryTypeDelivery, order.DeliveryTypePickup:
		return nil
	default:
		return errutil.ValidationFailed("delivery type must be delivery or pickup", nil)
	}
}

func (s Settings) validateAddress(a *Address) error {
	if a == nil {
		return errutil.ValidationFailed("address is required for delivery", nil)
	}

	var details []errutil.Detail
	if strings.TrimSpace(a.Street) == "" {
		details = append(details, errutil.Detail{Field: "street", Message: "street is required"})
	}
	if strings.TrimSpace(a.Number) == "" {
		details = append(details, errutil.Detail{Field: "number", Message: "number is required"})
	}
	if strings.TrimSpace(a.Neighborhood) == "" {
		details = append(details, errutil.Detail{Field: "neighborhood", Message: "neighborhood is required"})
	}

	if len(details) > 0 {
		return errutil.ValidationFailed("address step incomplete", nil, errutil.WithDetails(details...))
	}
	return nil
}

func (s Settings) validateSchedule(req SubmitRequest) error {
	if !s.SchedulingEnabled {
		return errutil.ValidationFailed("scheduling is not available", nil)
	}

	when, err := time.ParseInLocation(ScheduleLayout, req.ScheduledFor, time.Local)
	if err != nil {
		return errutil.ValidationFailed("scheduled_for must be yyyy-MM-ddTHH:mm:ss", err)
	}

	now := time.Now()
	if when.Before(now.Add(time.Duration(s.MinScheduleMinutes) * time.Minute)) {
		return errutil.ValidationFailed(
			fmt.Sprintf("orders must be scheduled at least %d minutes ahead", s.MinScheduleMinutes), nil)
	}
	if when.After(now.AddDate(0, 0, s.MaxScheduleDays)) {
		return errutil.ValidationFailed(
			fmt.Sprintf("orders can be scheduled at most %d days ahead", s.MaxScheduleDays), nil)
	}

	return nil
}

func (s Settings) validatePayment(req SubmitRequest) error {
	switch req.PaymentMethod {
	case order.PaymentPix, order.PaymentCard:
		return nil
	case order.PaymentCash:
		if req.CashChangeFor != nil && *req.CashChangeFor <= 0 {
			return errutil.ValidationFailed("change amount must be positive", nil)
		}
		return nil
	default:
		return errutil.ValidationFailed("payment method must be pix, card or cash", nil)
	}
}

func (s Settings) validatePix(req SubmitRequest) error {
	if len(digitsOf(req.CPF)) != 11 {
		return errutil.ValidationFailed("cpf must have 11 digits", nil)
	}
	return nil
}

func digitsOf(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
