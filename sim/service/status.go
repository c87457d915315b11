package service

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state published by a service.
type Status uint8

const (
	Stopped Status = iota
	Running
	Warning
	Error
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Policy selects how a service reacts to a failed hook.
type Policy uint8

const (
	// PolicyPass ignores the failure.
	PolicyPass Policy = iota
	// PolicyLog logs the failure and keeps running.
	PolicyLog
	// PolicyStop logs, marks the service Error and stops it.
	PolicyStop
	// PolicyHalt does what PolicyStop does and then exits the process.
	PolicyHalt
)

func (p Policy) String() string {
	switch p {
	case PolicyPass:
		return "pass"
	case PolicyLog:
		return "log"
	case PolicyStop:
		return "stop"
	case PolicyHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass":
		return PolicyPass, nil
	case "log", "":
		return PolicyLog, nil
	case "stop":
		return PolicyStop, nil
	case "halt":
		return PolicyHalt, nil
	}
	return PolicyLog, fmt.Errorf("unknown debug policy %q", s)
}

func (p Policy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Report is one published (status, label) pair.
type Report struct {
	Service string
	Status  Status
	Label   string
	At      time.Time
}

func (r Report) String() string {
	if r.Label == "" {
		return fmt.Sprintf("%s: %s", r.Service, r.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Service, r.Status, r.Label)
}
