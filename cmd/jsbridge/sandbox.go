package main

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// sandbox is the Go object exposed to scripts as `host`.
type sandbox struct {
	out     io.Writer
	Started time.Time         `js:"started"`
	Tags    map[string]string `js:"tags"`
	Name    string
	Value   int
}

func newSandbox(out io.Writer) *sandbox {
	return &sandbox{
		out:     out,
		Name:    "sandbox",
		Started: time.Now().UTC(),
		Tags:    map[string]string{"runtime": "goja"},
	}
}

func (s *sandbox) PrintValue(msg string) {
	fmt.Fprintln(s.out, msg, s.Value)
}

func (s *sandbox) Add(n int) int {
	s.Value += n
	return s.Value
}

func (s *sandbox) Uptime() float64 {
	return time.Since(s.Started).Seconds()
}

func (s *sandbox) Fail(msg string) error {
	return errors.New(msg)
}

func (s *sandbox) String() string {
	return fmt.Sprintf("sandbox(%s, value=%d)", s.Name, s.Value)
}
