package council

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/rng"
	"councilofbots.ai/internal/sim/scoring"
	"councilofbots.ai/internal/sim/templates"
	"councilofbots.ai/internal/sim/voting"
)

const ThreatPenaltyReason = "Unresolved threats"

// DefaultVoteGrace is how long a member may take to hand back its fallback once its vote
// deadline has passed.
const DefaultVoteGrace = 250 * time.Millisecond

type Config struct {
	Rounds      int
	VoteTimeout time.Duration
	VoteGrace   time.Duration
	Deliberate  bool
	GalNet      bool
	Logger      *log.Logger
}

// Runner owns the galaxy, ledger and random source of one run. It is driven from a single
// goroutine.
type Runner struct {
	cfg     Config
	catalog *templates.Catalog
	src     rng.Source
	members []Member
	sinks   []Sink

	galaxy *galaxy.State
	ledger scoring.Ledger
	logger *log.Logger
}

func NewRunner(cfg Config, catalog *templates.Catalog, src rng.Source, members []Member, sinks ...Sink) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{
		cfg:     cfg,
		catalog: catalog,
		src:     src,
		members: append([]Member(nil), members...),
		sinks:   sinks,
		galaxy:  galaxy.New(),
		logger:  logger,
	}
}

func (r *Runner) Galaxy() *galaxy.State       { return r.galaxy }
func (r *Runner) Ledger() *scoring.Ledger     { return &r.ledger }
func (r *Runner) Members() []Member           { return append([]Member(nil), r.members...) }
func (r *Runner) AddSink(s Sink)              { r.sinks = append(r.sinks, s) }
func (r *Runner) Catalog() *templates.Catalog { return r.catalog }

// MemberNames lists the council seats in voting order.
func (r *Runner) MemberNames() []string {
	out := make([]string, len(r.members))
	for i, m := range r.members {
		out[i] = m.Name()
	}
	return out
}

// Run plays rounds 1..Rounds, stopping early only when ctx is done or a sink fails.
func (r *Runner) Run(ctx context.Context) error {
	for round := 1; round <= r.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Step(ctx, round); err != nil {
			return err
		}
	}
	return nil
}

// Step plays one full round with member votes.
func (r *Runner) Step(ctx context.Context, round int) (*RoundRecord, error) {
	return r.step(ctx, round, -1)
}

// StepForced plays one round with a fixed winning option instead of votes. The event is
// still generated from the random source, so a run replayed with its recorded winners
// reproduces every round.
func (r *Runner) StepForced(ctx context.Context, round, winner int) (*RoundRecord, error) {
	if winner < 0 {
		winner = 0
	}
	return r.step(ctx, round, winner)
}

func (r *Runner) step(ctx context.Context, round, forced int) (*RoundRecord, error) {
	g := r.galaxy
	g.Round = round

	ev := templates.Select(r.catalog, g, r.src)
	rec := &RoundRecord{
		Round:    round,
		Template: ev.Template,
		Event:    ev.Description,
		Options:  make([]string, len(ev.Options)),
	}
	for i, o := range ev.Options {
		rec.Options[i] = o.Description
	}

	if forced >= 0 {
		rec.Forced = true
		rec.Winner = voting.ClampChoice(forced, len(ev.Options))
		rec.Votes = []voting.Vote{}
		rec.Tally = voting.Tally(nil, len(ev.Options))
	} else {
		ballot := ev
		if r.cfg.Deliberate {
			rec.Deliberation = r.deliberate(ctx, &ev)
			if len(rec.Deliberation) > 0 {
				ballot.Description = ev.Description + "\n\nCOUNCIL DELIBERATION:\n" + strings.Join(rec.Deliberation, "\n")
			}
		}
		rec.Votes, rec.Excluded = r.collectVotes(ctx, &ev, &ballot)
		rec.Tally = voting.Tally(rec.Votes, len(ev.Options))
		rec.Winner = voting.Resolve(rec.Votes, len(ev.Options))
	}

	out := ev.Options[rec.Winner].Outcome
	r.ledger.Add(round, out.ScoreDelta, out.Description)
	g.Apply(out.Changes...)
	for _, c := range out.Changes {
		rec.Changes = append(rec.Changes, ChangeRecord{Kind: c.Kind(), Detail: c.String()})
	}

	penalty := g.ProcessThreats()
	if penalty != 0 {
		r.ledger.Add(round, penalty, ThreatPenaltyReason)
	}

	rec.Outcome = out.Description
	rec.Delta = out.ScoreDelta
	rec.Penalty = penalty
	rec.Total = r.ledger.Total()
	rec.Sectors = len(g.Sectors)
	rec.Species = len(g.Species)
	rec.Threats = len(g.Threats)
	rec.Discoveries = len(g.Discoveries)
	if r.cfg.GalNet {
		rec.GalNet = GalNetBlurb(round, rec.Winner, rec.Delta, rec.Total, rec.Threats, rec.Discoveries)
	}
	rec.Digest = g.Digest()

	for _, s := range r.sinks {
		if err := s.RecordRound(rec); err != nil {
			return rec, fmt.Errorf("round %d: sink: %w", round, err)
		}
	}
	return rec, nil
}

// collectVotes weighs each member on the generated event but shows it the ballot, which
// may carry the deliberation transcript.
func (r *Runner) collectVotes(ctx context.Context, ev, ballot *event.Event) ([]voting.Vote, []string) {
	votes := make([]voting.Vote, 0, len(r.members))
	var excluded []string
	view := r.galaxy.Clone()
	for _, m := range r.members {
		choice, err := r.vote(ctx, m, ballot, view)
		if err != nil {
			r.logger.Printf("round %d: %s excluded: %v", r.galaxy.Round, m.Name(), err)
			excluded = append(excluded, m.Name())
			continue
		}
		votes = append(votes, voting.Vote{
			Member: m.Name(),
			Choice: voting.ClampChoice(choice, len(ev.Options)),
			Weight: voting.Weight(m.Expertise(), ev),
		})
	}
	return votes, excluded
}

type voteResult struct {
	choice int
	err    error
}

// vote runs the member on its own goroutine so a member that ignores its context cannot
// stall the round. An answer that arrives within the grace period after the deadline
// still counts: that is the fallback of a member whose model call was cut short.
func (r *Runner) vote(ctx context.Context, m Member, ev *event.Event, g *galaxy.State) (int, error) {
	vctx, cancel := r.bound(ctx)
	defer cancel()
	done := make(chan voteResult, 1)
	go func() {
		choice, err := m.Vote(vctx, ev, g)
		done <- voteResult{choice: choice, err: err}
	}()
	res, err := await(vctx, done, r.grace())
	if err != nil {
		return 0, err
	}
	return res.choice, res.err
}

func (r *Runner) deliberate(ctx context.Context, ev *event.Event) []string {
	var lines []string
	view := r.galaxy.Clone()
	for _, m := range r.members {
		c, ok := m.(Commenter)
		if !ok {
			continue
		}
		cctx, cancel := r.bound(ctx)
		done := make(chan comment, 1)
		go func() {
			text, ok := c.Comment(cctx, ev, view)
			done <- comment{text: text, ok: ok}
		}()
		res, err := await(cctx, done, r.grace())
		cancel()
		if err != nil {
			r.logger.Printf("round %d: %s silent: %v", r.galaxy.Round, m.Name(), err)
			continue
		}
		if text, ok := res.text, res.ok; ok && text != "" {
			lines = append(lines, m.Name()+": "+text)
		}
	}
	return lines
}

type comment struct {
	text string
	ok   bool
}

// await waits for ch, giving up grace after ctx ends.
func await[T any](ctx context.Context, ch <-chan T, grace time.Duration) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
	}
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case v := <-ch:
		return v, nil
	case <-t.C:
		var zero T
		return zero, ctx.Err()
	}
}

func (r *Runner) grace() time.Duration {
	if r.cfg.VoteGrace > 0 {
		return r.cfg.VoteGrace
	}
	return DefaultVoteGrace
}

func (r *Runner) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.VoteTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.VoteTimeout)
}

// Report applies the end-of-run bonuses.
func (r *Runner) Report(b scoring.Bonuses, tiers []scoring.Tier) scoring.Report {
	return scoring.Final(r.galaxy, &r.ledger, b, tiers)
}
