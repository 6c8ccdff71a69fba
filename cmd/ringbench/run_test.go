package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/squadracorsepolito/bytering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_runFlags_benchConfig(t *testing.T) {
	require := require.New(t)

	flags := &runFlags{
		capacity:      "10 KiB",
		chunkSize:     "512",
		total:         "1MB",
		mode:          "All-Or-Nothing",
		backlog:       "4KiB",
		statsInterval: 2 * time.Second,
	}

	cfg, err := flags.benchConfig()
	require.NoError(err)

	assert := assert.New(t)
	assert.Equal(uint32(10*1024), cfg.Capacity)
	assert.Equal(512, cfg.ChunkSize)
	assert.Equal(int64(1_000_000), cfg.TotalBytes)
	assert.Equal(bytering.AllOrNothing, cfg.Mode)
	assert.Equal(4096, cfg.BacklogSize)
	assert.Equal(2*time.Second, cfg.StatsInterval)
}

func Test_runFlags_Invalid(t *testing.T) {
	assert := assert.New(t)

	valid := func() *runFlags {
		return &runFlags{
			capacity:  "1KiB",
			chunkSize: "64",
			total:     "1KiB",
			mode:      "partial",
			backlog:   "1KiB",
		}
	}

	cases := []struct {
		name   string
		mutate func(f *runFlags)
	}{
		{"bad capacity", func(f *runFlags) { f.capacity = "lots" }},
		{"capacity overflow", func(f *runFlags) { f.capacity = "8GiB" }},
		{"bad total", func(f *runFlags) { f.total = "-" }},
		{"bad mode", func(f *runFlags) { f.mode = "blocking" }},
	}

	for _, tc := range cases {
		flags := valid()
		tc.mutate(flags)

		_, err := flags.benchConfig()
		assert.ErrorIs(err, errInvalidFlag, tc.name)
	}
}

func Test_RunCmd(t *testing.T) {
	require := require.New(t)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{
		"run",
		"--capacity", "4KiB",
		"--chunk-size", "1KiB",
		"--total", "2MiB",
		"--mode", "all-or-nothing",
	})

	require.NoError(root.Execute())
}

func Test_RunCmd_InvalidConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{
		"run",
		"--capacity", "1KiB",
		"--chunk-size", "4KiB",
		"--mode", "all-or-nothing",
	})

	assert.Error(t, root.Execute())
}
