// Package uploadlog buffers the detailed log of one upload batch in
// memory while it is being processed. A clean batch collapses into a
// single short line; a failed batch replays the whole buffer so the
// operator sees every step that led to the error.
//
// Thread safety comes from a dedicated goroutine draining a command
// channel; there are no mutexes.
package uploadlog

import (
	"bytes"
	"fmt"
	"log"
	"strings"
)

type action int

const (
	actBegin action = iota
	actAppend
	actSuccess
	actFlushErr
)

type cmd struct {
	act     action
	batchID string
	message string
	summary string // for Success
	err     error  // for FlushErr
}

var ch = make(chan cmd, 128) // headroom for upload bursts

// Begin starts buffering detail lines for a batch.
func Begin(batchID string) { ch <- cmd{act: actBegin, batchID: batchID} }

// Appendf records one formatted detail line for the batch. Lines for
// unknown batches go straight to the process log.
func Appendf(batchID, format string, v ...any) {
	ch <- cmd{act: actAppend, batchID: batchID, message: fmt.Sprintf(format, v...)}
}

// Success drops the buffer and logs one short line about the batch.
func Success(batchID, summary string) {
	ch <- cmd{act: actSuccess, batchID: batchID, summary: summary}
}

// FlushError replays the buffered detail lines followed by the error.
func FlushError(batchID string, err error) {
	ch <- cmd{act: actFlushErr, batchID: batchID, err: err}
}

func init() { go runloop() }

func runloop() {
	buffers := make(map[string]*bytes.Buffer)

	for c := range ch {
		switch c.act {
		case actBegin:
			buffers[c.batchID] = &bytes.Buffer{}

		case actAppend:
			if b := buffers[c.batchID]; b != nil {
				b.WriteString(c.message + "\n")
			} else {
				log.Print(c.message)
			}

		case actSuccess:
			log.Printf("[%-6s][Upload] ✔ %s", c.batchID, c.summary)
			delete(buffers, c.batchID)

		case actFlushErr:
			if b := buffers[c.batchID]; b != nil {
				for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
					if line != "" {
						log.Print(line)
					}
				}
				delete(buffers, c.batchID)
			}
			log.Printf("[%-6s][ERROR] %v", c.batchID, c.err)
		}
	}
}
