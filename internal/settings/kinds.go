package settings

import (
	"github.com/wolfman30/store-dashboard/internal/schedule"
)

// SlotSettings controls how opening hours are cut into bookable slots.
// Durations are in minutes.
type SlotSettings struct {
	SlotDuration      int `json:"slot_duration" schema:"slot_duration" validate:"gte=5,lte=480"`
	MaxBookingPerSlot int `json:"max_booking_per_slot" schema:"max_booking_per_slot" validate:"gte=1,lte=100"`
	BufferTime        int `json:"buffer_time" schema:"buffer_time" validate:"gte=0,lte=240"`
}

func DefaultSlotSettings() SlotSettings {
	return SlotSettings{SlotDuration: 30, MaxBookingPerSlot: 1}
}

// BookingSettings are the customer-facing booking rules.
type BookingSettings struct {
	MinAdvanceHours    int  `json:"min_advance_hours" schema:"min_advance_hours" validate:"gte=0,lte=720"`
	MaxAdvanceDays     int  `json:"max_advance_days" schema:"max_advance_days" validate:"gte=1,lte=365"`
	CancelBeforeHours  int  `json:"cancel_before_hours" schema:"cancel_before_hours" validate:"gte=0,lte=720"`
	IsAutoConfirm      bool `json:"is_auto_confirm" schema:"is_auto_confirm"`
	IsAllowSelectStaff bool `json:"is_allow_select_staff" schema:"is_allow_select_staff"`
}

func DefaultBookingSettings() BookingSettings {
	return BookingSettings{
		MinAdvanceHours:    1,
		MaxAdvanceDays:     30,
		CancelBeforeHours:  24,
		IsAutoConfirm:      true,
		IsAllowSelectStaff: true,
	}
}

// Tab keys, also the API segments under /stores/{id}.
const (
	TabTime    = "setting-time"
	TabSlot    = "setting-slot"
	TabBooking = "setting-booking"
)

var TimeKind = Kind[schedule.WeekSettings]{
	Name:     TabTime,
	Label:    "Opening hours",
	Defaults: schedule.DefaultWeekSettings,
	Prepare:  func(w *schedule.WeekSettings) { w.Backfill() },
	Finalize: func(w schedule.WeekSettings) schedule.WeekSettings {
		out := w.Clone()
		out.Normalize()
		return out
	},
}

var SlotKind = Kind[SlotSettings]{
	Name:     TabSlot,
	Label:    "Slots",
	Defaults: DefaultSlotSettings,
	Prepare: func(s *SlotSettings) {
		if *s == (SlotSettings{}) {
			*s = DefaultSlotSettings()
		}
	},
}

var BookingKind = Kind[BookingSettings]{
	Name:     TabBooking,
	Label:    "Booking",
	Defaults: DefaultBookingSettings,
	Prepare: func(b *BookingSettings) {
		if *b == (BookingSettings{}) {
			*b = DefaultBookingSettings()
		}
	},
}
