package streak_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/streak"
)

// fakeSource serves a canned history, most-recent-first.
type fakeSource struct {
	results map[string][]model.Outcome
}

func (f *fakeSource) History(_ context.Context, playerID string, limit int) ([]model.HistoricalResult, error) {
	outcomes := f.results[playerID]
	if limit > 0 && limit < len(outcomes) {
		outcomes = outcomes[:limit]
	}
	history := make([]model.HistoricalResult, len(outcomes))
	for i, o := range outcomes {
		history[i] = model.HistoricalResult{Outcome: o}
	}
	return history, nil
}

func TestCurrentStreak(t *testing.T) {
	Convey("Given a streak calculator over canned histories", t, func() {
		src := &fakeSource{results: map[string][]model.Outcome{
			"empty":        {},
			"three-wins":   {model.OutcomeWin, model.OutcomeWin, model.OutcomeWin, model.OutcomeLoss},
			"two-losses":   {model.OutcomeLoss, model.OutcomeLoss, model.OutcomeWin},
			"leading-draw": {model.OutcomeDraw, model.OutcomeWin, model.OutcomeWin},
			"draw-breaks":  {model.OutcomeWin, model.OutcomeWin, model.OutcomeDraw, model.OutcomeWin},
		}}
		calc := streak.NewHistoryCalculator(src)
		ctx := context.Background()

		Convey("When the player has no history", func() {
			n, err := calc.Current(ctx, "empty")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When the player is on a winning run", func() {
			n, err := calc.Current(ctx, "three-wins")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
		})

		Convey("When the player is on a losing run", func() {
			n, err := calc.Current(ctx, "two-losses")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, -2)
		})

		Convey("When the most recent result is a draw", func() {
			n, err := calc.Current(ctx, "leading-draw")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When a draw sits in the middle of a win run", func() {
			n, err := calc.Current(ctx, "draw-breaks")

			Convey("Then the current walk stops at the draw", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})
	})
}

func TestBestStreak(t *testing.T) {
	Convey("Given a streak calculator over canned histories", t, func() {
		// Histories are most-recent-first; chronological order is reversed.
		src := &fakeSource{results: map[string][]model.Outcome{
			"empty":     {},
			"all-draws": {model.OutcomeDraw, model.OutcomeDraw},
			// chronological: W W L W W W -> best 3
			"broken-run": {model.OutcomeWin, model.OutcomeWin, model.OutcomeWin, model.OutcomeLoss, model.OutcomeWin, model.OutcomeWin},
			// chronological: W W D W -> draws transparent, best 3
			"draw-transparent": {model.OutcomeWin, model.OutcomeDraw, model.OutcomeWin, model.OutcomeWin},
		}}
		calc := streak.NewHistoryCalculator(src)
		ctx := context.Background()

		Convey("When the player has no history", func() {
			n, err := calc.Best(ctx, "empty")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When the player only ever drew", func() {
			n, err := calc.Best(ctx, "all-draws")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When a loss splits two win runs", func() {
			n, err := calc.Best(ctx, "broken-run")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 3)
		})

		Convey("When a draw sits inside a win run", func() {
			n, err := calc.Best(ctx, "draw-transparent")

			Convey("Then the run continues through the draw", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})
	})
}

func TestCurrentWindowOption(t *testing.T) {
	Convey("Given a calculator with a bounded current-streak window", t, func() {
		wins := make([]model.Outcome, 10)
		for i := range wins {
			wins[i] = model.OutcomeWin
		}
		src := &fakeSource{results: map[string][]model.Outcome{"p": wins}}
		calc := streak.NewHistoryCalculator(src, streak.WithCurrentWindow(5))

		Convey("When the run is longer than the window", func() {
			n, err := calc.Current(context.Background(), "p")

			Convey("Then the reported streak is capped by the window", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 5)
			})
		})
	})
}
