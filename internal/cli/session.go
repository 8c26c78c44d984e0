package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/davinci"
	"github.com/aretw0/davinci/internal/presentation/tui"
	"github.com/aretw0/davinci/pkg/collector"
	"github.com/aretw0/davinci/pkg/domain"
	"github.com/aretw0/davinci/pkg/idp"
	"github.com/aretw0/davinci/pkg/node"
)

// maxTransportRetries bounds silent resubmissions after a connectivity error.
const maxTransportRetries = 2

// session drives one workflow from Start to a terminal node.
type session struct {
	wf      *davinci.Workflow
	prompt  *tui.Prompter
	handler idp.Handler
	logger  *slog.Logger
}

// authenticate runs the flow and returns the user of the SuccessNode.
func (s *session) authenticate(ctx context.Context) (*domain.User, error) {
	n, err := s.wf.Start(ctx)
	if err != nil {
		return nil, err
	}

	retries := 0
	for {
		switch cur := n.(type) {
		case *node.SuccessNode:
			return cur.User(), nil

		case *node.FailureNode:
			return nil, cur.Err()

		case *node.ErrorNode:
			s.prompt.Error(cur.Message())
			for _, d := range cur.Details() {
				s.prompt.Error(d.Key + ": " + d.Message)
			}
			retry := cur.Retry()
			if retry == nil {
				return nil, cur.Err()
			}
			n = retry

		case *node.ContinueNode:
			next, err := s.step(ctx, cur)
			switch {
			case err == nil:
				n, retries = next, 0
			case errors.Is(err, errRetryStep):
			case domain.IsTransport(err) && retries < maxTransportRetries && ctx.Err() == nil:
				retries++
				s.prompt.Error(err.Error())
				s.prompt.Info(fmt.Sprintf("Retrying (%d/%d)...", retries, maxTransportRetries))
			default:
				return nil, err
			}
		}
	}
}

var errRetryStep = errors.New("step needs more input")

// step prompts for one ContinueNode and submits it.
func (s *session) step(ctx context.Context, n *node.ContinueNode) (node.Node, error) {
	action, err := s.prompt.Step(n)
	if err != nil {
		return nil, err
	}

	switch a := action.(type) {
	case *idp.Collector:
		if s.handler == nil {
			s.prompt.Error("social login is not configured (set idp_handlers)")
			return nil, errRetryStep
		}
		if err := a.Authorize(ctx, s.handler); err != nil {
			s.prompt.Error(err.Error())
			return nil, errRetryStep
		}
	case collector.FlowTrigger:
		click(a)
	case collector.Submitter:
		if msgs := n.Validate(); len(msgs) > 0 {
			s.prompt.Problems(msgs)
			return nil, errRetryStep
		}
		click(a)
	}

	s.logger.Debug("submitting step", "step_id", n.ID(), "name", n.Name())
	return n.Next(ctx)
}

func click(c collector.Collector) {
	if b, ok := c.(interface{ Click() }); ok {
		b.Click()
	}
}
