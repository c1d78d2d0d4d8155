package openvidu

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherForceUnpublish(t *testing.T) {
	tests := []struct {
		name    string
		session string
		conn    string
		stream  string
		status  int
		wantErr error
	}{
		{
			name:    "webrtc stream",
			session: "TestSession",
			conn:    webrtcID,
			stream:  "vhdxz7abbfirh2lh_CAMERA_CLVAU",
			status:  http.StatusNoContent,
		},
		{
			name:    "stream gone",
			session: "TestSession",
			conn:    webrtcID,
			stream:  "vhdxz7abbfirh2lh_CAMERA_CLVAU",
			status:  http.StatusNotFound,
			wantErr: ErrStreamNotFound,
		},
		{
			name:    "session gone",
			session: "TestSession",
			conn:    webrtcID,
			stream:  "vhdxz7abbfirh2lh_CAMERA_CLVAU",
			status:  http.StatusBadRequest,
			wantErr: ErrSessionNotFound,
		},
		{
			name:    "ipcam stream",
			session: "TestSession2",
			conn:    ipcamID,
			stream:  "str_CAM_NhxL_con_Xnxg123qnh",
			status:  http.StatusMethodNotAllowed,
			wantErr: ErrStreamOperationNotAllowed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeServer(t).withDefaults()
			c := newTestClient(t, f)
			conn := testConnection(t, c, tt.session, tt.conn)
			path := "sessions/" + tt.session + "/stream/" + tt.stream
			f.handle(http.MethodDelete, path, tt.status, nil)

			pubs := conn.Publishers()
			require.Len(t, pubs, 1)
			err := pubs[0].ForceUnpublish(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, f.callCount(http.MethodDelete, path))
			assert.True(t, conn.IsValid())
		})
	}
}

func TestPublisherNotBound(t *testing.T) {
	var p Publisher
	assert.ErrorIs(t, p.ForceUnpublish(context.Background()), ErrStreamNotFound)
}

func TestPublisherReplacedOnRefresh(t *testing.T) {
	f := newFakeServer(t).withDefaults()
	c := newTestClient(t, f)
	conn := testConnection(t, c, "TestSession", webrtcID)
	before := conn.Publishers()

	updated := webrtcConnectionFixture()
	updated["publishers"].(arr)[0].(obj)["mediaOptions"] = cameraOptions(15)
	f.handle(http.MethodGet, webrtcPath, http.StatusOK, updated)
	changed, err := conn.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	after := conn.Publishers()
	assert.Equal(t, float64(30), *before[0].MediaOptions.FrameRate)
	assert.Equal(t, float64(15), *after[0].MediaOptions.FrameRate)
}
