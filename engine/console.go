package engine

import "go.uber.org/zap"

// consolePrinter routes script console output to zap.
type consolePrinter struct {
	log *zap.Logger
}

func (p *consolePrinter) Log(s string) {
	p.log.Info(s, zap.String("source", "console"))
}

func (p *consolePrinter) Warn(s string) {
	p.log.Warn(s, zap.String("source", "console"))
}

func (p *consolePrinter) Error(s string) {
	p.log.Error(s, zap.String("source", "console"))
}
