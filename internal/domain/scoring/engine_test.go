package scoring_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/rainstream/internal/domain/model"
	"github.com/okian/rainstream/internal/domain/scoring"
	"github.com/okian/rainstream/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeStore captures persisted round records.
type fakeStore struct {
	mu      sync.Mutex
	records []model.RoundRecord
	err     error
}

func (s *fakeStore) SaveRound(_ context.Context, rec model.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeStore) saved() []model.RoundRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RoundRecord(nil), s.records...)
}

// fixedClock steps time manually.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

func drop(x, y float64) model.MergedDetection {
	return model.MergedDetection{X: x, Y: y, Radius: 8, Confidence: 0.9, SupportCount: 2}
}

func click(t time.Time, x, y float64) model.ClickEvent {
	return model.ClickEvent{X: x, Y: y, TimestampMs: t.UnixMilli()}
}

func TestEngineRoundLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh scoring engine", t, func() {
		store := &fakeStore{}
		clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
		eng := scoring.NewEngine(store,
			scoring.WithClock(clock.Now),
			scoring.WithOpponent(&scoring.FixedOpponent{}),
			scoring.WithRoundDuration(10*time.Second),
		)

		Convey("Then it starts in the not-started phase", func() {
			So(eng.Phase(), ShouldEqual, scoring.PhaseNotStarted)
		})

		Convey("When ticking before any round has started", func() {
			err := eng.Tick(ctx, clock.Now(), nil, nil)

			Convey("Then it refuses with ErrRoundNotRunning", func() {
				So(errors.Is(err, scoring.ErrRoundNotRunning), ShouldBeTrue)
			})
		})

		Convey("When starting a round", func() {
			err := eng.StartRound(ctx)

			Convey("Then the engine transitions to running with fresh state", func() {
				So(err, ShouldBeNil)
				So(eng.Phase(), ShouldEqual, scoring.PhaseRunning)
				So(eng.State().RoundID, ShouldNotBeEmpty)
				So(eng.State().Score, ShouldEqual, 0)
				So(eng.State().Difficulty, ShouldEqual, model.DifficultyMedium)
			})

			Convey("And starting again while running", func() {
				err := eng.StartRound(ctx)

				Convey("Then it refuses with ErrRoundRunning", func() {
					So(errors.Is(err, scoring.ErrRoundRunning), ShouldBeTrue)
				})
			})
		})

		Convey("When a round runs past its duration", func() {
			So(eng.StartRound(ctx), ShouldBeNil)
			tickTime := clock.advance(10 * time.Second)
			err := eng.Tick(ctx, tickTime, nil, nil)

			Convey("Then the round ends and the record is persisted", func() {
				So(err, ShouldBeNil)
				So(eng.Phase(), ShouldEqual, scoring.PhaseEnded)
				So(store.saved(), ShouldHaveLength, 1)
				So(store.saved()[0].UsernameHash, ShouldEqual, "anonymous")
				So(store.saved()[0].DeviceType, ShouldEqual, "desktop")
			})
		})

		Convey("When a running round is aborted", func() {
			So(eng.StartRound(ctx), ShouldBeNil)
			eng.Abort(ctx)

			Convey("Then nothing is persisted", func() {
				So(eng.Phase(), ShouldEqual, scoring.PhaseEnded)
				So(store.saved(), ShouldBeEmpty)
			})
		})

		Convey("When the store fails at round end", func() {
			store.err = errors.New("disk on fire")
			So(eng.StartRound(ctx), ShouldBeNil)
			err := eng.Tick(ctx, clock.advance(10*time.Second), nil, nil)

			Convey("Then the error surfaces but the round still ends", func() {
				So(err, ShouldNotBeNil)
				So(eng.Phase(), ShouldEqual, scoring.PhaseEnded)
			})
		})
	})
}

func TestEngineScoring(t *testing.T) {
	ctx := context.Background()

	newEngine := func(store *fakeStore, clock *fixedClock, opp scoring.Opponent) *scoring.Engine {
		return scoring.NewEngine(store,
			scoring.WithClock(clock.Now),
			scoring.WithOpponent(opp),
			scoring.WithMatchRadius(30),
			scoring.WithMatchWindow(500*time.Millisecond),
			scoring.WithRoundDuration(time.Minute),
		)
	}

	Convey("Given a running round with an inactive opponent", t, func() {
		store := &fakeStore{}
		clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
		eng := newEngine(store, clock, &scoring.FixedOpponent{})
		So(eng.StartRound(ctx), ShouldBeNil)

		merged := []model.MergedDetection{drop(100, 100), drop(300, 200)}

		Convey("When a click lands within the radius of a detection", func() {
			tickTime := clock.advance(time.Second)
			err := eng.Tick(ctx, tickTime, merged, []model.ClickEvent{
				click(tickTime, 105, 98),
			})

			Convey("Then it scores a base hit", func() {
				So(err, ShouldBeNil)
				So(eng.State().Score, ShouldEqual, 10)
				So(eng.State().HumanHits, ShouldEqual, 1)
				So(eng.State().Combo, ShouldEqual, 1)
				So(eng.State().Accuracy, ShouldEqual, 1)
			})
		})

		Convey("When consecutive hits build a combo", func() {
			t1 := clock.advance(time.Second)
			So(eng.Tick(ctx, t1, merged, []model.ClickEvent{click(t1, 100, 100)}), ShouldBeNil)
			t2 := clock.advance(time.Second)
			So(eng.Tick(ctx, t2, merged, []model.ClickEvent{click(t2, 300, 200)}), ShouldBeNil)

			Convey("Then the second hit pays the combo bonus", func() {
				So(eng.State().Score, ShouldEqual, 25) // 10 + 15
				So(eng.State().Combo, ShouldEqual, 2)
				So(eng.State().ComboMax, ShouldEqual, 2)
			})
		})

		Convey("When a click lands in empty space", func() {
			t1 := clock.advance(time.Second)
			So(eng.Tick(ctx, t1, merged, []model.ClickEvent{click(t1, 100, 100)}), ShouldBeNil)
			scoreAfterHit := eng.State().Score

			t2 := clock.advance(time.Second)
			So(eng.Tick(ctx, t2, merged, []model.ClickEvent{click(t2, 500, 400)}), ShouldBeNil)

			Convey("Then the miss resets the combo but never the score", func() {
				So(eng.State().HumanMisses, ShouldEqual, 1)
				So(eng.State().Combo, ShouldEqual, 0)
				So(eng.State().Score, ShouldEqual, scoreAfterHit)
				So(eng.State().Accuracy, ShouldAlmostEqual, 0.5, 1e-9)
			})

			Convey("And a later hit restarts the combo from one", func() {
				t3 := clock.advance(time.Second)
				So(eng.Tick(ctx, t3, merged, []model.ClickEvent{click(t3, 100, 100)}), ShouldBeNil)
				So(eng.State().Combo, ShouldEqual, 1)
				So(eng.State().Score, ShouldEqual, scoreAfterHit+10)
			})
		})

		Convey("When a click is stale beyond the match window", func() {
			tickTime := clock.advance(time.Second)
			old := click(tickTime.Add(-2*time.Second), 100, 100)
			So(eng.Tick(ctx, tickTime, merged, []model.ClickEvent{old}), ShouldBeNil)

			Convey("Then it counts as a miss even on target", func() {
				So(eng.State().HumanHits, ShouldEqual, 0)
				So(eng.State().HumanMisses, ShouldEqual, 1)
			})
		})

		Convey("When many ticks interleave hits and misses", func() {
			last := 0
			for i := 0; i < 20; i++ {
				tt := clock.advance(time.Second)
				c := click(tt, 100, 100)
				if i%3 == 0 {
					c = click(tt, 500, 400) // miss
				}
				So(eng.Tick(ctx, tt, merged, []model.ClickEvent{c}), ShouldBeNil)
				So(eng.State().Score, ShouldBeGreaterThanOrEqualTo, last)
				last = eng.State().Score
			}

			Convey("Then the final score reflects only accumulated hits", func() {
				So(eng.State().Score, ShouldBeGreaterThan, 0)
				So(eng.State().HumanMisses, ShouldEqual, 7)
				So(eng.State().HumanHits, ShouldEqual, 13)
			})
		})
	})

	Convey("Given a running round where the opponent claims everything", t, func() {
		store := &fakeStore{}
		clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
		eng := newEngine(store, clock, &scoring.FixedOpponent{ClaimAll: true})
		So(eng.StartRound(ctx), ShouldBeNil)

		merged := []model.MergedDetection{drop(100, 100)}

		Convey("When the human hits the same detection", func() {
			tickTime := clock.advance(time.Second)
			So(eng.Tick(ctx, tickTime, merged, []model.ClickEvent{click(tickTime, 100, 100)}), ShouldBeNil)

			Convey("Then the overlap counts as a collaboration with a bonus", func() {
				So(eng.State().CollaborationCount, ShouldEqual, 1)
				So(eng.State().Score, ShouldEqual, 15) // 10 base + 5 collaboration
				So(eng.State().AIHits, ShouldEqual, 1)
				So(eng.State().AIScore, ShouldEqual, 10)
			})
		})

		Convey("When the human never clicks", func() {
			tickTime := clock.advance(time.Second)
			So(eng.Tick(ctx, tickTime, merged, nil), ShouldBeNil)

			Convey("Then the opponent scores alone with no collaboration", func() {
				So(eng.State().AIHits, ShouldEqual, 1)
				So(eng.State().CollaborationCount, ShouldEqual, 0)
				So(eng.State().HumanHits, ShouldEqual, 0)
			})
		})
	})
}

func TestEngineDifficultyAdaptation(t *testing.T) {
	ctx := context.Background()

	run := func(eng *scoring.Engine, clock *fixedClock, merged []model.MergedDetection, hit bool) {
		for i := 0; i < 5; i++ {
			tt := clock.advance(time.Second)
			var clicks []model.ClickEvent
			if hit {
				clicks = []model.ClickEvent{click(tt, 100, 100)}
			} else {
				clicks = []model.ClickEvent{click(tt, 500, 400)}
			}
			So(eng.Tick(ctx, tt, merged, clicks), ShouldBeNil)
		}
		// run out the clock
		So(eng.Tick(ctx, clock.advance(10*time.Second), merged, nil), ShouldBeNil)
		So(eng.Phase(), ShouldEqual, scoring.PhaseEnded)
	}

	newEngine := func(store *fakeStore, clock *fixedClock) *scoring.Engine {
		return scoring.NewEngine(store,
			scoring.WithClock(clock.Now),
			scoring.WithOpponent(&scoring.FixedOpponent{}),
			scoring.WithRoundDuration(10*time.Second),
			scoring.WithDifficulty(model.DifficultyMedium),
		)
	}

	Convey("Given a completed round with perfect accuracy", t, func() {
		store := &fakeStore{}
		clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
		eng := newEngine(store, clock)
		merged := []model.MergedDetection{drop(100, 100)}

		So(eng.StartRound(ctx), ShouldBeNil)
		run(eng, clock, merged, true)

		Convey("When the next round starts", func() {
			So(eng.StartRound(ctx), ShouldBeNil)

			Convey("Then difficulty is promoted to hard", func() {
				So(eng.State().Difficulty, ShouldEqual, model.DifficultyHard)
			})
		})
	})

	Convey("Given a perfect run that is aborted midway", t, func() {
		store := &fakeStore{}
		clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
		eng := newEngine(store, clock)
		merged := []model.MergedDetection{drop(100, 100)}

		So(eng.StartRound(ctx), ShouldBeNil)
		for i := 0; i < 5; i++ {
			tt := clock.advance(time.Second)
			So(eng.Tick(ctx, tt, merged, []model.ClickEvent{click(tt, 100, 100)}), ShouldBeNil)
		}
		eng.Abort(ctx)

		Convey("When the next round starts", func() {
			So(eng.StartRound(ctx), ShouldBeNil)

			Convey("Then the discarded accuracy does not drive adaptation", func() {
				So(eng.State().Difficulty, ShouldEqual, model.DifficultyMedium)
			})
		})
	})

	Convey("Given a completed round with zero accuracy", t, func() {
		store := &fakeStore{}
		clock := &fixedClock{now: time.Unix(1_700_000_000, 0)}
		eng := newEngine(store, clock)
		merged := []model.MergedDetection{drop(100, 100)}

		So(eng.StartRound(ctx), ShouldBeNil)
		run(eng, clock, merged, false)

		Convey("When the next round starts", func() {
			So(eng.StartRound(ctx), ShouldBeNil)

			Convey("Then difficulty is demoted to easy", func() {
				So(eng.State().Difficulty, ShouldEqual, model.DifficultyEasy)
			})

			Convey("And hard floors and ceilings hold over repeated rounds", func() {
				run(eng, clock, merged, false)
				So(eng.StartRound(ctx), ShouldBeNil)
				So(eng.State().Difficulty, ShouldEqual, model.DifficultyEasy)
			})
		})
	})
}
