package maestro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContextSendWithoutSender(t *testing.T) {
	session := NewSessionContext()
	err := session.Send(NewCancelRecordingFrame("rec-1"))

	require.Error(t, err)
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, ErrCodeSendRejected, clientErr.Code)
}

func TestSessionContextSendRouting(t *testing.T) {
	sender := &fakeSender{}
	session := NewSessionContext()
	session.SetSender(sender)

	frame := NewCancelRecordingFrame("rec-1")
	require.NoError(t, session.Send(frame))
	require.Len(t, sender.frames, 1)
	assert.Same(t, frame, sender.frames[0])
}

func TestSessionContextReset(t *testing.T) {
	session := NewSessionContext()
	session.SetID("sess-1")
	assert.Equal(t, "sess-1", session.ID())

	session.Reset()
	assert.Equal(t, "", session.ID())
}
