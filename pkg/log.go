package pedpeel

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

func NewLogger(level string) (*log.Entry, error) {
	lvl, e := log.ParseLevel(level)
	if e != nil {
		return nil, fmt.Errorf("NewLogger: %w", e)
	}
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(lvl)
	return log.NewEntry(l), nil
}
