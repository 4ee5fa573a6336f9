package models

import "fmt"

// Mode — торговая вселенная. SIMULATED и LIVE полностью изолированы:
// каждый запрос к позициям/сделкам параметризуется режимом явно,
// никакого глобального "test mode" флага.
type Mode string

const (
	ModeSimulated Mode = "SIMULATED"
	ModeLive      Mode = "LIVE"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSimulated, ModeLive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

func (m Mode) Valid() bool {
	return m == ModeSimulated || m == ModeLive
}
