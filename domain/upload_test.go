package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcceptedFile(t *testing.T) {
	req := require.New(t)

	req.True(AcceptedFile("/exports/avtr_1234.vrca"))
	req.True(AcceptedFile("/exports/world.VRCW"))
	req.True(AcceptedFile("scene.unity3d"))
	req.True(AcceptedFile("thing.prefab"))

	req.False(AcceptedFile("/exports/avtr_1234.zip"))
	req.False(AcceptedFile("notes.txt"))
	req.False(AcceptedFile("no_extension"))
}

func TestItemStatus_Terminal(t *testing.T) {
	req := require.New(t)

	req.False(StatusPending.Terminal())
	req.False(StatusUploading.Terminal())

	for _, s := range []ItemStatus{
		StatusSuccess, StatusSkippedDuplicate, StatusSkippedDeclined,
		StatusSkippedTimeout, StatusFailedNoID, StatusFailedTooLarge,
		StatusFailedNetwork, StatusFailedError,
	} {
		req.True(s.Terminal(), s.String())
	}
}

func TestNewUploadItem(t *testing.T) {
	req := require.New(t)

	item := NewUploadItem("/exports/avtr_1234.vrca")
	req.Equal("avtr_1234.vrca", item.Name)
	req.Equal(StatusPending, item.Status)
	req.NotEqual(item.ID, NewUploadItem("/exports/avtr_1234.vrca").ID)
}
