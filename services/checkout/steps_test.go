package checkout

import (
	"testing"
	"time"

	"pizzaria-orderplane/services/order"

	"github.com/stretchr/testify/require"
)

func testSettings() Settings {
	return Settings{
		PointsPerReal:        1.0,
		DiscountPer100Points: 5.0,
		MinPointsToRedeem:    50,
		SchedulingEnabled:    true,
		MinScheduleMinutes:   60,
		MaxScheduleDays:      7,
	}
}

func TestActiveStepsRecomputed(t *testing.T) {
	s := testSettings()

	pickupCash := SubmitRequest{
		DeliveryType:  order.DeliveryTypePickup,
		PaymentMethod: order.PaymentCash,
	}
	require.Equal(t,
		[]string{StepContact, StepDelivery, StepPayment, StepConfirmation},
		s.ActiveSteps(pickupCash))

	deliveryPix := SubmitRequest{
		DeliveryType:  order.DeliveryTypeDelivery,
		PaymentMethod: order.PaymentPix,
	}
	require.Equal(t,
		[]string{StepContact, StepDelivery, StepAddress, StepPayment, StepPix, StepConfirmation},
		s.ActiveSteps(deliveryPix))

	scheduled := SubmitRequest{
		DeliveryType:  order.DeliveryTypeDelivery,
		IsScheduled:   true,
		PaymentMethod: order.PaymentCard,
	}
	require.Equal(t,
		[]string{StepContact, StepDelivery, StepAddress, StepSchedule, StepPayment, StepConfirmation},
		s.ActiveSteps(scheduled))

	// Switching back to pickup drops the address step.
	scheduled.DeliveryType = order.DeliveryTypePickup
	require.Equal(t,
		[]string{StepContact, StepDelivery, StepSchedule, StepPayment, StepConfirmation},
		s.ActiveSteps(scheduled))
}

func TestActiveStepsSchedulingDisabled(t *testing.T) {
	s := testSettings()
	s.SchedulingEnabled = false

	req := SubmitRequest{
		DeliveryType:  order.DeliveryTypePickup,
		IsScheduled:   true,
		PaymentMethod: order.PaymentCash,
	}
	require.NotContains(t, s.ActiveSteps(req), StepSchedule)
}

func TestValidateContact(t *testing.T) {
	s := testSettings()

	require.NoError(t, s.ValidateStep(StepContact, SubmitRequest{
		Contact: Contact{Name: "Maria", Phone: "(11) 99999-0000", Email: "maria@example.com"},
	}))

	err := s.ValidateStep(StepContact, SubmitRequest{
		Contact: Contact{Name: "", Phone: "12345", Email: "not-an-email"},
	})
	require.Error(t, err)
}

func TestValidateAddressRequiredForDelivery(t *testing.T) {
	s := testSettings()

	require.Error(t, s.ValidateStep(StepAddress, SubmitRequest{}))

	require.Error(t, s.ValidateStep(StepAddress, SubmitRequest{
		Address: &Address{Street: "Rua A"},
	}))

	require.NoError(t, s.ValidateStep(StepAddress, SubmitRequest{
		Address: &Address{Street: "Rua A", Number: "10", Neighborhood: "Centro"},
	}))
}

func TestValidateScheduleWindow(t *testing.T) {
	s := testSettings()

	tooSoon := time.Now().Add(30 * time.Minute).Format(ScheduleLayout)
	require.Error(t, s.ValidateStep(StepSchedule, SubmitRequest{ScheduledFor: tooSoon}))

	tooFar := time.Now().AddDate(0, 0, 8).Format(ScheduleLayout)
	require.Error(t, s.ValidateStep(StepSchedule, SubmitRequest{ScheduledFor: tooFar}))

	ok := time.Now().Add(2 * time.Hour).Format(ScheduleLayout)
	require.NoError(t, s.ValidateStep(StepSchedule, SubmitRequest{ScheduledFor: ok}))

	require.Error(t, s.ValidateStep(StepSchedule, SubmitRequest{ScheduledFor: "2025-09-01 18:00"}))
}

func TestValidatePixRequiresCPF(t *testing.T) {
	s := testSettings()

	require.Error(t, s.ValidateStep(StepPix, SubmitRequest{CPF: "123"}))
	require.NoError(t, s.ValidateStep(StepPix, SubmitRequest{CPF: "123.456.789-01"}))
}

func TestValidateCartLines(t *testing.T) {
	s := testSettings()

	require.NoError(t, s.ValidateStep(StepConfirmation, SubmitRequest{
		Items: []CartItem{{Name: "Pizza Calabresa", Size: "G", Quantity: 1, UnitPrice: 55}},
	}))

	require.Error(t, s.ValidateStep(StepConfirmation, SubmitRequest{}))

	// A negative quantity must not be able to shrink the subtotal.
	require.Error(t, s.ValidateStep(StepConfirmation, SubmitRequest{
		Items: []CartItem{
			{Name: "Pizza Margherita", Quantity: 1, UnitPrice: 60},
			{Name: "Pizza Calabresa", Quantity: -1, UnitPrice: 55},
		},
	}))

	require.Error(t, s.ValidateStep(StepConfirmation, SubmitRequest{
		Items: []CartItem{{Name: "Pizza Margherita", Quantity: 1, UnitPrice: -60}},
	}))

	require.Error(t, s.ValidateStep(StepConfirmation, SubmitRequest{
		Items: []CartItem{{Name: "  ", Quantity: 1, UnitPrice: 60}},
	}))
}

func TestValidatePayment(t *testing.T) {
	s := testSettings()

	require.NoError(t, s.ValidateStep(StepPayment, SubmitRequest{PaymentMethod: order.PaymentCard}))
	require.Error(t, s.ValidateStep(StepPayment, SubmitRequest{PaymentMethod: "cheque"}))

	negative := -5.0
	require.Error(t, s.ValidateStep(StepPayment, SubmitRequest{
		PaymentMethod: order.PaymentCash,
		CashChangeFor: &negative,
	}))
}
