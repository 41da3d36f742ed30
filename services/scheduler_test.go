package services

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronPanicsGoThroughProcessLogger(t *testing.T) {
	var buf bytes.Buffer
	utils.Logger.SetOutput(&buf)
	defer utils.Logger.SetOutput(os.Stderr)

	job := cron.NewChain(cron.Recover(cronLogger())).Then(cron.FuncJob(func() {
		panic("sweep exploded")
	}))
	require.NotPanics(t, job.Run)
	assert.Contains(t, buf.String(), "sweep exploded")
}

func TestNewSchedulerStartsAndStops(t *testing.T) {
	s := NewScheduler(nil, nil, nil)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop(context.Background())
}
