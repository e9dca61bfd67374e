package logging

import (
	"context"
	"fmt"
	"strings"
)

// PrintfAdapter exposes a Logger through the Printf/Fatalf pair that
// libraries such as goose log through.
type PrintfAdapter struct {
	l Logger
}

func NewPrintfAdapter(l Logger) *PrintfAdapter {
	return &PrintfAdapter{l: l}
}

func (a *PrintfAdapter) Printf(format string, v ...any) {
	a.l.Info(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level. It does not exit; callers get the failure back
// as an error and decide.
func (a *PrintfAdapter) Fatalf(format string, v ...any) {
	a.l.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}
