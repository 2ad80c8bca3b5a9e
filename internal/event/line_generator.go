package event

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/auto-dns/docker-mqtt-sync/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const maxLineSize = 1 << 20

// LineGenerator drives the docker CLI and decodes its JSON line output.
type LineGenerator struct {
	binary     string
	bufferSize int
	logger     zerolog.Logger
}

func NewLineGenerator(binary string, bufferSize int, logger zerolog.Logger) *LineGenerator {
	return &LineGenerator{
		binary:     binary,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

func inventoryArgs() []string {
	return []string{"ps", "--all", "--no-trunc", "--format", "{{json .}}"}
}

func eventArgs(since time.Time) []string {
	args := []string{"events", "--filter", "type=container"}
	for _, et := range domain.WatchedEventTypes {
		args = append(args, "--filter", "event="+string(et))
	}
	args = append(args,
		"--since", fmt.Sprintf("%d.%09d", since.Unix(), since.Nanosecond()),
		"--format", "{{json .}}",
	)
	return args
}

func (lg *LineGenerator) Inventory(ctx context.Context) ([]domain.ContainerSummary, error) {
	cmd := exec.CommandContext(ctx, lg.binary, inventoryArgs()...)
	raw, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s ps: %w: %s", lg.binary, err, bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%s ps: %w", lg.binary, err)
	}
	return readInventory(bytes.NewReader(raw), lg.logger)
}

// Subscribe starts `docker events` and streams its decoded output. The
// channel is closed when the process exits or its output ends. A read
// failure on stdout kills the process, so the channel still closes.
func (lg *LineGenerator) Subscribe(ctx context.Context, since time.Time) (<-chan domain.ContainerEvent, error) {
	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, lg.binary, eventArgs(since)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s events: %w", lg.binary, err)
	}

	out := make(chan domain.ContainerEvent, lg.bufferSize)
	go func() {
		defer close(out)
		defer cancel()

		g, gctx := errgroup.WithContext(procCtx)
		g.Go(func() error {
			err := readEvents(gctx, stdout, out, lg.logger)
			if err != nil {
				// Kill the process and drain what it already wrote so stderr and
				// stdout both reach EOF.
				cancel()
				_, _ = io.Copy(io.Discard, stdout)
			}
			return err
		})
		g.Go(func() error {
			return logStream(stderr, lg.logger)
		})
		readErr := g.Wait()
		if readErr != nil && ctx.Err() == nil {
			lg.logger.Error().Err(readErr).Msg("Reading docker events output")
		}

		if err := cmd.Wait(); err != nil && ctx.Err() == nil && readErr == nil {
			lg.logger.Error().Err(err).Msg("docker events process exited")
			return
		}
		lg.logger.Info().Msg("docker events output closed")
	}()

	return out, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

func readInventory(r io.Reader, logger zerolog.Logger) ([]domain.ContainerSummary, error) {
	var out []domain.ContainerSummary
	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		summary, err := decodeInventoryLine(line)
		if err != nil {
			logger.Error().Err(err).Msg("Dropping inventory line")
			continue
		}
		out = append(out, summary)
	}
	return out, scanner.Err()
}

// readEvents decodes lines until EOF. Blank and malformed lines are dropped.
func readEvents(ctx context.Context, r io.Reader, out chan<- domain.ContainerEvent, logger zerolog.Logger) error {
	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, err := decodeEventLine(line)
		if err != nil {
			var unsupported *UnsupportedEventTypeError
			if errors.As(err, &unsupported) {
				logger.Debug().Err(err).Msg("Ignoring docker event")
			} else {
				logger.Error().Err(err).Msg("Dropping docker event line")
			}
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func logStream(r io.Reader, logger zerolog.Logger) error {
	scanner := newLineScanner(r)
	for scanner.Scan() {
		logger.Warn().Str("stream", "stderr").Msg(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
