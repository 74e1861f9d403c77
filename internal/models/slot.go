package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	slotSeparator  = "|"
	slotDateLayout = "2006-1-2"
)

// SlotError reports why a slot string could not be parsed.
type SlotError struct {
	Reason string
}

func (e *SlotError) Error() string {
	return e.Reason
}

// Slot is an appointment window requested by the submitter.
// Hour and Duration are not range checked: an hour of 99 parses fine.
type Slot struct {
	Date     time.Time
	Hour     uint32
	Duration uint32 // minutes
}

// ParseSlot parses "YYYY-MM-DD|HOUR|DURATION".
func ParseSlot(s string) (*Slot, error) {
	parts := strings.Split(s, slotSeparator)
	if len(parts) != 3 {
		return nil, &SlotError{Reason: "Invalid slot format"}
	}

	date, err := time.Parse(slotDateLayout, parts[0])
	if err != nil {
		return nil, &SlotError{Reason: "Invalid date"}
	}
	hour, err := parseUint32(parts[1])
	if err != nil {
		return nil, &SlotError{Reason: "Invalid hour"}
	}
	duration, err := parseUint32(parts[2])
	if err != nil {
		return nil, &SlotError{Reason: "Invalid duration"}
	}

	return &Slot{
		Date:     date,
		Hour:     uint32(hour),
		Duration: uint32(duration),
	}, nil
}

// parseUint32 accepts an optional single leading '+'.
func parseUint32(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, 32)
}

func (s Slot) String() string {
	return fmt.Sprintf("Slot { date: %s, hour: %d, duration: %d }",
		s.Date.Format("2006-01-02"), s.Hour, s.Duration)
}
