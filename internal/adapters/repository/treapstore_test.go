package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/rainstream/internal/adapters/repository"
	"github.com/okian/rainstream/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(user string, points int) model.RoundRecord {
	return model.RoundRecord{
		UsernameHash: user,
		Points:       points,
		AIScore:      float64(points) / 2,
		HumanScore:   float64(points),
		Timestamp:    time.Unix(1_700_000_000, 0),
		DeviceType:   "desktop",
	}
}

func TestTreapStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty treap store", t, func() {
		s := repository.NewTreapStore()

		Convey("Then it tracks no players", func() {
			So(s.Count(ctx), ShouldEqual, 0)
		})

		Convey("When looking up an unknown player", func() {
			_, err := s.Rank(ctx, "ghost")

			Convey("Then it returns ErrNotFound", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When requesting a non-positive TopN limit", func() {
			_, err := s.TopN(ctx, 0)

			Convey("Then it returns ErrInvalidLimit", func() {
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When saving rounds for several players", func() {
			So(s.SaveRound(ctx, rec("alice", 300)), ShouldBeNil)
			So(s.SaveRound(ctx, rec("bob", 500)), ShouldBeNil)
			So(s.SaveRound(ctx, rec("carol", 100)), ShouldBeNil)

			Convey("Then TopN orders by points descending with ranks", func() {
				top, err := s.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 3)
				So(top[0].UsernameHash, ShouldEqual, "bob")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].UsernameHash, ShouldEqual, "alice")
				So(top[2].UsernameHash, ShouldEqual, "carol")
			})

			Convey("Then TopN honors the limit", func() {
				top, err := s.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
			})

			Convey("Then Rank finds each player's position", func() {
				entry, err := s.Rank(ctx, "alice")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
				So(entry.Points, ShouldEqual, 300)
			})

			Convey("And saving again for the same player replaces the record", func() {
				So(s.SaveRound(ctx, rec("carol", 900)), ShouldBeNil)
				So(s.Count(ctx), ShouldEqual, 3)

				entry, err := s.Rank(ctx, "carol")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Points, ShouldEqual, 900)
			})

			Convey("And a lower later score also replaces by default", func() {
				So(s.SaveRound(ctx, rec("bob", 50)), ShouldBeNil)

				entry, err := s.Rank(ctx, "bob")
				So(err, ShouldBeNil)
				So(entry.Points, ShouldEqual, 50)
				So(entry.Rank, ShouldEqual, 3)
			})
		})

		Convey("When two players tie on points", func() {
			So(s.SaveRound(ctx, rec("zoe", 200)), ShouldBeNil)
			So(s.SaveRound(ctx, rec("amy", 200)), ShouldBeNil)

			Convey("Then the tie breaks by username ascending", func() {
				top, err := s.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(top[0].UsernameHash, ShouldEqual, "amy")
				So(top[1].UsernameHash, ShouldEqual, "zoe")
			})
		})

		Convey("When saving a record without a username", func() {
			err := s.SaveRound(ctx, rec("", 10))

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When many players are inserted", func() {
			for i := 0; i < 200; i++ {
				So(s.SaveRound(ctx, rec(fmt.Sprintf("player-%03d", i), i)), ShouldBeNil)
			}

			Convey("Then ranks are a contiguous 1..N sequence", func() {
				top, err := s.TopN(ctx, 200)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 200)
				for i, e := range top {
					So(e.Rank, ShouldEqual, i+1)
				}
				So(top[0].Points, ShouldEqual, 199)
			})
		})
	})

	Convey("Given a store configured to keep best scores", t, func() {
		s := repository.NewTreapStore(repository.WithKeepBest())

		Convey("When a later round scores lower", func() {
			So(s.SaveRound(ctx, rec("dana", 400)), ShouldBeNil)
			So(s.SaveRound(ctx, rec("dana", 150)), ShouldBeNil)

			Convey("Then the higher score survives", func() {
				entry, err := s.Rank(ctx, "dana")
				So(err, ShouldBeNil)
				So(entry.Points, ShouldEqual, 400)
			})
		})
	})
}
