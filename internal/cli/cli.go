// Package cli implements the schoolsync operator commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iudanet/schoolsync/internal/iocli"
	"github.com/iudanet/schoolsync/internal/metrics"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/sync"
)

// History reads the import journal
type History interface {
	History(ctx context.Context, limit int) ([]*models.ImportEntry, error)
}

type Cli struct {
	io          iocli.IO
	syncService sync.Service
	history     History
	metrics     *metrics.Registry
	// textfile файл node-exporter, пусто - метрики не пишутся
	textfile string
	logger   *slog.Logger
}

func New(io iocli.IO, syncService sync.Service, history History, logger *slog.Logger) *Cli {
	return &Cli{
		io:          io,
		syncService: syncService,
		history:     history,
		logger:      logger,
	}
}

// writeMetrics сбрасывает метрики в textfile, ошибка не прерывает команду
func (c *Cli) writeMetrics() {
	if c.metrics == nil || c.textfile == "" {
		return
	}
	if err := c.metrics.WriteTextfile(c.textfile); err != nil {
		c.logger.Warn("Failed to write metrics textfile", "path", c.textfile, "error", err)
	}
}

func confirmed(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
