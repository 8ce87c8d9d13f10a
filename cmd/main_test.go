package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/xcleague/internal/cli"
	"github.com/okian/xcleague/internal/league"
)

func TestCommandTree(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := cli.NewRootCmd()

		convey.Convey("Then every subcommand is registered", func() {
			for _, name := range []string{"process", "watch", "render", "serve", "league"} {
				cmd, _, err := root.Find([]string{name})
				convey.So(err, convey.ShouldBeNil)
				convey.So(cmd.Name(), convey.ShouldEqual, name)
			}
		})

		convey.Convey("When dumping the built-in league", func() {
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&bytes.Buffer{})
			root.SetArgs([]string{"league", "dump"})
			err := root.ExecuteContext(context.Background())

			convey.Convey("Then the output is a valid league definition", func() {
				convey.So(err, convey.ShouldBeNil)
				l, err := league.Parse(&out)
				convey.So(err, convey.ShouldBeNil)
				convey.So(l.Name, convey.ShouldEqual, league.Default().Name)
			})
		})
	})
}
