package lbcheck

import (
	"testing"

	"github.com/okian/arcade/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func gameRow(user, game string, best int64) types.GameRow {
	return types.GameRow{Username: user, GameCode: game, BestScore: best}
}

func TestChecks(t *testing.T) {
	Convey("Given the descending check", t, func() {
		So(checkDescending(nil), ShouldBeNil)
		So(checkDescending([]int64{9, 9, 3, 0}), ShouldBeNil)
		So(checkDescending([]int64{3, 9}), ShouldNotBeNil)
	})

	Convey("Given the uniqueness check", t, func() {
		So(checkUnique([]string{"a", "b"}, "user"), ShouldBeNil)
		err := checkUnique([]string{"a", "b", "a"}, "user")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, `user "a" appears at rows 0 and 2`)
	})

	Convey("Given a game leaderboard", t, func() {
		board := types.GameLeaderboard{
			GameCode: "quiz",
			Rows:     []types.GameRow{gameRow("bob", "", 80), gameRow("alice", "", 50)},
		}

		Convey("Then a well-formed board passes", func() {
			So(checkGameBoard("quiz", board, 2), ShouldBeNil)
		})

		Convey("Then a wrong echoed code fails", func() {
			So(checkGameBoard("flappy", board, 2), ShouldNotBeNil)
		})

		Convey("Then exceeding the limit fails", func() {
			So(checkGameBoard("quiz", board, 1), ShouldNotBeNil)
		})

		Convey("Then a repeated user fails", func() {
			board.Rows = append(board.Rows, gameRow("bob", "", 10))
			So(checkGameBoard("quiz", board, 5), ShouldNotBeNil)
		})
	})

	Convey("Given a per-game view", t, func() {
		codes := []string{"quiz", "flappy"}
		leaders := map[string]types.GameRow{
			"quiz":   gameRow("bob", "", 80),
			"flappy": gameRow("alice", "", 30),
		}
		rows := []types.GameRow{gameRow("bob", "quiz", 80), gameRow("alice", "flappy", 30)}

		Convey("Then rows matching each game's leader pass", func() {
			So(checkTopPerGame(rows, codes, leaders, 5), ShouldBeNil)
		})

		Convey("Then a row disagreeing with its game's leader fails", func() {
			leaders["quiz"] = gameRow("carol", "", 90)
			So(checkTopPerGame(rows, codes, leaders, 5), ShouldNotBeNil)
		})

		Convey("Then an unknown game fails", func() {
			rows = append(rows, gameRow("dave", "snake", 1))
			So(checkTopPerGame(rows, codes, leaders, 5), ShouldNotBeNil)
		})

		Convey("Then a game listed twice fails", func() {
			rows = append(rows, gameRow("alice", "flappy", 30))
			So(checkTopPerGame(rows, codes, leaders, 5), ShouldNotBeNil)
		})
	})

	Convey("Given a total score leaderboard", t, func() {
		rows := []types.TotalRow{
			{Username: "alice", TotalScore: 80, TotalPlayed: 11},
			{Username: "bob", TotalScore: 80, TotalPlayed: 2},
		}

		Convey("Then ties in descending order pass", func() {
			So(checkGlobal(rows, 2), ShouldBeNil)
		})

		Convey("Then negative totals fail", func() {
			rows[1].TotalPlayed = -1
			So(checkGlobal(rows, 2), ShouldNotBeNil)
		})
	})

	Convey("Given a report", t, func() {
		r := &Report{}
		r.add("ok", nil)
		So(r.Passed(), ShouldBeTrue)

		r.add("broken", checkDescending([]int64{1, 2}))
		So(r.Passed(), ShouldBeFalse)
		So(len(r.Failures()), ShouldEqual, 1)
		So(r.Failures()[0].Name, ShouldEqual, "broken")
		So(r.Failures()[0].Detail, ShouldNotBeEmpty)
	})
}
