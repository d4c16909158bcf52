/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"printdesigner/internal/config"
	"printdesigner/internal/crash"
	applog "printdesigner/internal/log"
	"printdesigner/internal/storage"
	"printdesigner/internal/version"
)

// errUsage makes main print the usage text and exit with code 2.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "printdesigner: printable document template editor")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  printdesigner version                              Show version")
	_, _ = fmt.Fprintln(w, "  printdesigner palette                              List block types by category")
	_, _ = fmt.Fprintln(w, "  printdesigner new <file> <name> [type]             Create a draft template file")
	_, _ = fmt.Fprintln(w, "  printdesigner show <file>                          Print template and blocks")
	_, _ = fmt.Fprintln(w, "  printdesigner add <file> <type> [index]            Append (or insert) a block")
	_, _ = fmt.Fprintln(w, "  printdesigner move <file> <id> up|down             Swap a block with its neighbour")
	_, _ = fmt.Fprintln(w, "  printdesigner reorder <file> <id> <index>          Drag a block to an insertion index")
	_, _ = fmt.Fprintln(w, "  printdesigner remove <file> <id>                   Remove a block")
	_, _ = fmt.Fprintln(w, "  printdesigner set <file> <id> <bag> <field> <value>  Edit one property")
	_, _ = fmt.Fprintln(w, "  printdesigner width <file> <id> <25|50|75|100>     Set block width")
	_, _ = fmt.Fprintln(w, "  printdesigner when <file> <id> <field> <op> [value]  Set a show_if rule (when <file> <id> off clears it)")
	_, _ = fmt.Fprintln(w, "  printdesigner paper <file> <label>                 Switch paper profile")
	_, _ = fmt.Fprintln(w, "  printdesigner zoom <file> <zoom>                   Print canvas geometry at a zoom")
	_, _ = fmt.Fprintln(w, "  printdesigner visible <file> <context.json> [--ungated]  Evaluate show_if rules")
	_, _ = fmt.Fprintln(w, "  printdesigner export <file> <out.json>             Export the portable document")
	_, _ = fmt.Fprintln(w, "  printdesigner import <file> <in.json>              Replace blocks from an export")
	_, _ = fmt.Fprintln(w, "  printdesigner lint <file>                          Report out-of-range values")
	_, _ = fmt.Fprintln(w, "  printdesigner proof <file> <out.pdf> [zoom]        Write a wireframe PDF")
	_, _ = fmt.Fprintln(w, "  printdesigner thumb <file> <out.png> [zoom]        Write a PNG thumbnail")
	_, _ = fmt.Fprintln(w, "  printdesigner save <file>                          Save the draft to the store")
	_, _ = fmt.Fprintln(w, "  printdesigner publish <file> [notes]               Publish a new version")
	_, _ = fmt.Fprintln(w, "  printdesigner versions <file>                      List published versions")
	_, _ = fmt.Fprintln(w, "  printdesigner audit <file>                         List the audit trail")
	_, _ = fmt.Fprintln(w, "  printdesigner list                                 List stored templates")
	_, _ = fmt.Fprintln(w, "  printdesigner preview <file> <context.json> [html|text]  Render through the render service")
	_, _ = fmt.Fprintln(w, "  printdesigner upload <file>                        Upload an asset")
	_, _ = fmt.Fprintln(w, "  printdesigner token <user> <role> [venue]          Sign a backend token (needs PD_AUTH_SECRET)")
	_, _ = fmt.Fprintln(w, "  printdesigner login <token>                        Store the backend token in the OS keyring")
	_, _ = fmt.Fprintln(w, "  printdesigner serve                                Run the persistence service")
}

func main() {
	cfg, token, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "config:", err)
	}
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("cli")

	a := &app{cfg: cfg, token: token, out: os.Stdout, log: l}
	// filled in once a command opens a draft; the crash handler autosaves it
	draft := &storage.DraftHandle{}
	a.onOpen = func(h *storage.DraftHandle) { *draft = *h }
	defer crash.Recover(draft)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Debug("start", slog.Int("args", len(os.Args)))
	err = a.run(ctx, os.Args[1:])
	switch {
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		stop()
		os.Exit(2)
	case err != nil:
		l.Error("command failed", slog.Any("err", err))
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
