package sigil

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const batchWorkers = 10

// Batch renders identicons for many identifiers concurrently. Renders
// are independent of each other so identifiers are simply fanned out to
// a fixed pool of workers.
type Batch struct {
	theme    Theme
	size     int
	inverted bool
	logger   zerolog.Logger
}

// NewBatch validates the theme and size up front so a bad configuration
// fails before any identifier is read.
func NewBatch(theme Theme, size int, inverted bool, logger zerolog.Logger) (*Batch, error) {
	s, err := Generate(theme, nil)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.geometry(size); err != nil {
		return nil, err
	}

	return &Batch{
		theme:    theme,
		size:     size,
		inverted: inverted,
		logger:   logger,
	}, nil
}

// Filename returns the file an identifier renders to: the identifier
// with anything hostile to filesystems replaced, or the digest in hex
// when nothing usable survives, plus a ".png" extension.
func Filename(identifier string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_', r == '@':
			return r
		}
		return '-'
	}, identifier)
	if strings.Trim(mapped, "-.") == "" {
		mapped = Hash([]byte(identifier)).String()
	}
	return mapped + ".png"
}

func (b *Batch) identifiers(ctx context.Context, r io.Reader) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			// Blank lines are harmless separators
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			select {
			case out <- line:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		errc <- scanner.Err()
	}()
	return out, errc
}

func (b *Batch) renderWorker(dir string, in <-chan string) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for identifier := range in {
			sg, err := Generate(b.theme, []byte(identifier))
			if err != nil {
				errc <- err
				return
			}
			if b.inverted {
				sg = sg.Invert()
			}

			img, err := sg.PNG(b.size)
			if err != nil {
				errc <- err
				return
			}

			file := filepath.Join(dir, Filename(identifier))
			if err := os.WriteFile(file, img, 0o644); err != nil {
				errc <- err
				return
			}

			b.logger.Debug().Str("identifier", identifier).Str("file", file).Msg("rendered")
		}
	}()
	return errc
}

// Run reads newline separated identifiers from r and writes one PNG per
// identifier into dir, creating it if necessary. The first error stops
// the batch.
func (b *Batch) Run(ctx context.Context, r io.Reader, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	identifiers, errc := b.identifiers(ctx, r)
	errcList := []<-chan error{errc}

	for i := 0; i < batchWorkers; i++ {
		errcList = append(errcList, b.renderWorker(dir, identifiers))
	}

	return waitForPipeline(errcList...)
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
