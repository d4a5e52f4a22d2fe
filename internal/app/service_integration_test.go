package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "github.com/markandre0425/Main-Page-sub000/internal/adapters/repository"
	service "github.com/markandre0425/Main-Page-sub000/internal/app"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over a memory store with a frozen clock", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		frozen := time.UnixMilli(1_700_000_000_000)
		store := repository.NewMemoryStore(ctx, repository.WithClock(func() time.Time { return frozen }))
		svc := service.New(service.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a faster run collects fewer objectives", func() {
			_, err := svc.Submit(ctx, "escape-plan", submission("A", 45000, 3))
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, "escape-plan", submission("B", 30000, 1))
			So(err, ShouldBeNil)

			board, err := svc.Leaderboard(ctx, "escape-plan", 10)

			Convey("Then time decides the rank even though the score is lower", func() {
				So(err, ShouldBeNil)
				So(board, ShouldHaveLength, 2)
				So(board[0].Username, ShouldEqual, "B")
				So(board[0].Score, ShouldEqual, 700)
				So(board[1].Username, ShouldEqual, "A")
				So(board[1].Score, ShouldEqual, 2550)
			})
		})

		Convey("When runs tie on time", func() {
			_, err := svc.Submit(ctx, "maze", submission("B", 30000, 1))
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, "maze", submission("C", 30000, 2))
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, "maze", submission("D", 30000, 2))
			So(err, ShouldBeNil)

			board, err := svc.Leaderboard(ctx, "maze", 0)

			Convey("Then objectives and then submission order break the tie", func() {
				So(err, ShouldBeNil)
				names := []string{board[0].Username, board[1].Username, board[2].Username}
				So(names, ShouldResemble, []string{"C", "D", "B"})
			})
		})

		Convey("When games are played side by side", func() {
			_, err := svc.Submit(ctx, "crossword", submission("X", 5000, 0))
			So(err, ShouldBeNil)
			_, err = svc.Submit(ctx, "hazard-hunt", submission("Y", 100, 9))
			So(err, ShouldBeNil)

			Convey("Then each board only shows its own entries", func() {
				cw, err := svc.Leaderboard(ctx, "crossword", 0)
				So(err, ShouldBeNil)
				So(cw, ShouldHaveLength, 1)
				So(cw[0].Username, ShouldEqual, "X")
				So(cw[0].Score, ShouldEqual, -50)
			})
		})

		Convey("When many players submit concurrently", func() {
			const players = 16
			const rounds = 20
			var wg sync.WaitGroup
			errs := make(chan error, players*rounds)
			for p := 0; p < players; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for r := 0; r < rounds; r++ {
						sub := submission(fmt.Sprintf("kid-%d", p), int64(1000+(p*r)%700), int64(r%4))
						if _, err := svc.Submit(ctx, "stampede", sub); err != nil {
							errs <- err
						}
					}
				}(p)
			}
			wg.Wait()
			close(errs)

			Convey("Then every submission is stored once and the board stays ordered", func() {
				So(len(errs), ShouldEqual, 0)
				board, err := store.Query(ctx, "stampede", 0)
				So(err, ShouldBeNil)
				So(board, ShouldHaveLength, players*rounds)
				So(scoring.IsRanked(board), ShouldBeTrue)

				ids := make(map[int64]struct{}, len(board))
				for _, e := range board {
					ids[e.ID] = struct{}{}
				}
				So(ids, ShouldHaveLength, players*rounds)

				top, err := svc.Leaderboard(ctx, "stampede", 100)
				So(err, ShouldBeNil)
				So(top, ShouldResemble, board[:100])
			})
		})
	})
}
