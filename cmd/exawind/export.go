package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dusk-indust/oversetsim/internal/export"
)

func runExport(args []string, w io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: exawind export <dir>")
	}

	data, err := export.ExportRun(args[0])
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return data.Write(w)
}
