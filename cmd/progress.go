package cmd

import (
	"fmt"
	"io"

	"github.com/spigell/ats-analyzer/internal/progress"
	"github.com/spigell/ats-analyzer/internal/score"

	"go.uber.org/zap"
)

// printer reports progress events of one analysis.
type printer struct {
	logger     *zap.Logger
	out        io.Writer
	errOut     io.Writer
	debug      bool
	streamText bool

	phase     progress.Phase
	reasoning bool
	strong    int
	gaps      int
}

func newPrinter(logger *zap.Logger, out, errOut io.Writer, debug, streamText bool) *printer {
	return &printer{
		logger:     logger,
		out:        out,
		errOut:     errOut,
		debug:      debug,
		streamText: streamText,
		phase:      progress.Idle,
	}
}

func (p *printer) handle(u progress.Update) {
	if u.Phase != p.phase {
		p.transition(u)
	}

	switch data := u.Data.(type) {
	case progress.Text:
		switch {
		case u.Phase == progress.Generating && p.streamText:
			fmt.Fprint(p.out, data.Text)
		case u.Phase == progress.Reasoning && p.debug:
			fmt.Fprint(p.errOut, data.Text)
			p.reasoning = true
		}
	case *score.Score:
		if u.Phase == progress.Scoring {
			p.keywords(data)
		}
	}

	p.phase = u.Phase
}

func (p *printer) transition(u progress.Update) {
	// Reasoning output on stderr ends without a newline.
	if p.phase == progress.Reasoning && p.reasoning {
		fmt.Fprintln(p.errOut)
		p.reasoning = false
	}

	// Text streams alternate phases on every delta; log only the first switch.
	if (u.Phase == progress.Generating || u.Phase == progress.Reasoning) &&
		(p.phase == progress.Generating || p.phase == progress.Reasoning) {
		return
	}

	fields := []zap.Field{zap.String("phase", string(u.Phase))}
	switch data := u.Data.(type) {
	case progress.Contact:
		fields = append(fields, zap.String("name", data.Name), zap.String("email", data.Email))
	case progress.Posting:
		fields = append(fields, zap.String("title", data.Title), zap.String("company", data.Company))
	case *score.Score:
		if u.Phase == progress.Complete {
			fields = append(fields, zap.Int("score", data.Score))
		}
	}

	p.logger.Info("progress", fields...)
}

// keywords logs keyword buckets as they fill up during scoring.
func (p *printer) keywords(s *score.Score) {
	strong := len(s.KeywordAnalysis.StrongMatches)
	gaps := len(s.KeywordAnalysis.UnderRepresented) + len(s.KeywordAnalysis.NotFound)
	if strong <= p.strong && gaps <= p.gaps {
		return
	}

	p.strong, p.gaps = max(strong, p.strong), max(gaps, p.gaps)
	p.logger.Debug("keywords classified", zap.Int("strong_matches", p.strong), zap.Int("gaps", p.gaps))
}

// finish terminates a reasoning line left open by a failed stream.
func (p *printer) finish() {
	if p.reasoning {
		fmt.Fprintln(p.errOut)
		p.reasoning = false
	}
}
