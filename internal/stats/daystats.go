package stats

import (
	"encoding/binary"
	"fmt"
)

// recordSize is the length of an encoded DayStats blob.
const recordSize = 12

// DayStats aggregates one calendar day. Day is the number of days since the
// Unix epoch and identifies which day a ring slot currently holds.
type DayStats struct {
	Day               uint32 `json:"day"`
	CompletedSessions uint16 `json:"completed_sessions"`
	WorkMinutes       uint16 `json:"work_minutes"`
	BreakMinutes      uint16 `json:"break_minutes"`
	Interruptions     uint8  `json:"interruptions"`
}

// IsZero reports whether no activity is recorded, whatever the day.
func (d DayStats) IsZero() bool {
	return d.CompletedSessions == 0 && d.WorkMinutes == 0 && d.BreakMinutes == 0 && d.Interruptions == 0
}

// MarshalBinary encodes d as
//
//	[0:4] day | [4:6] completed | [6:8] work | [8:10] break | [10] interruptions | [11] reserved
//
// all little-endian.
func (d DayStats) MarshalBinary() ([]byte, error) {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.Day)
	binary.LittleEndian.PutUint16(buf[4:6], d.CompletedSessions)
	binary.LittleEndian.PutUint16(buf[6:8], d.WorkMinutes)
	binary.LittleEndian.PutUint16(buf[8:10], d.BreakMinutes)
	buf[10] = d.Interruptions
	return buf, nil
}

func (d *DayStats) UnmarshalBinary(data []byte) error {
	if len(data) != recordSize {
		return fmt.Errorf("day record is %d bytes, want %d", len(data), recordSize)
	}
	d.Day = binary.LittleEndian.Uint32(data[0:4])
	d.CompletedSessions = binary.LittleEndian.Uint16(data[4:6])
	d.WorkMinutes = binary.LittleEndian.Uint16(data[6:8])
	d.BreakMinutes = binary.LittleEndian.Uint16(data[8:10])
	d.Interruptions = data[10]
	return nil
}

func addU16(a uint16, b uint16) uint16 {
	if a > 0xFFFF-b {
		return 0xFFFF
	}
	return a + b
}

func incU8(a uint8) uint8 {
	if a == 0xFF {
		return a
	}
	return a + 1
}
