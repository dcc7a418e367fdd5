package client

import (
	"fmt"
	"strings"
	"time"
)

// Summary returns a one-line summary of the sensor
func (s *SensorInfo) Summary() string {
	name := s.Name
	if name == "" {
		name = "(unnamed)"
	}
	if s.Location != "" {
		return fmt.Sprintf("%s @ %s", name, s.Location)
	}
	return name
}

// FormatFeatures renders the feature bitmask, or "unset".
func FormatFeatures(f *uint32) string {
	if f == nil {
		return "unset"
	}
	return fmt.Sprintf("0x%08x", *f)
}

// FormatCompact returns a short multi-line view for the terminal.
func (s *SensorInfo) FormatCompact() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:     %s\n", s.Name)
	fmt.Fprintf(&b, "Location: %s\n", s.Location)
	fmt.Fprintf(&b, "Features: %s\n", FormatFeatures(s.Features))
	if s.Pairing {
		b.WriteString("Pairing:  OPEN\n")
	} else {
		b.WriteString("Pairing:  closed\n")
	}
	return b.String()
}

// FormatDetailed adds the diagnostics only paired clients can see.
func (s *SensorFull) FormatDetailed() string {
	var b strings.Builder
	b.WriteString(s.SensorInfo.FormatCompact())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Paired keys: %d\n", s.PairedKeys)
	fmt.Fprintf(&b, "Settings:    %s\n", FormatUsage(s.Usage.DataUsed, s.Usage.DataTotal))
	fmt.Fprintf(&b, "Pair set:    %s\n", FormatUsage(s.Usage.PairUsed, s.Usage.PairTotal))
	fmt.Fprintf(&b, "Uptime:      %s\n", time.Duration(s.Uptime)*time.Second)
	fmt.Fprintf(&b, "Free memory: %s\n", FormatBytes(s.FreeMemory))
	return b.String()
}

// FormatUsage renders "used/total bytes (pct%)".
func FormatUsage(used, total int) string {
	if total <= 0 {
		return fmt.Sprintf("%d bytes", used)
	}
	return fmt.Sprintf("%d/%d bytes (%.1f%%)", used, total, float64(used)*100/float64(total))
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatMeasurements renders a history table, newest first as received.
func FormatMeasurements(ms []Measurement, loc *time.Location) string {
	if len(ms) == 0 {
		return "No measurements recorded yet.\n"
	}
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString("TIME                 TEMP (°C)  HUMIDITY (%)\n")
	for _, m := range ms {
		fmt.Fprintf(&b, "%-19s  %9.1f  %12.1f\n",
			time.Unix(m.Timestamp, 0).In(loc).Format("2006-01-02 15:04:05"),
			m.Temperature, m.Humidity)
	}
	return b.String()
}
