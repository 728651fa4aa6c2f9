package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunState(t *testing.T) {
	req := require.New(t)
	s := NewRunState()

	s.SetTotal(1)
	req.False(s.Bulk())
	s.SetTotal(3)
	req.True(s.Bulk())

	done, total := s.IncrementDone()
	req.Equal(1, done)
	req.Equal(3, total)
	s.IncrementSucceeded()
	req.Equal(1, s.Done())
	req.Equal(1, s.Succeeded())

	s.Reset()
	req.Equal(0, s.Done())
	req.Equal(0, s.Succeeded())
	req.False(s.Bulk())
}
