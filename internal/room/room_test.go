package room_test

import (
	"testing"

	"github.com/Divine-P-77777/studylocal/internal/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		tutor   string
		student string
		want    string
	}{
		{"object id and auth0 id", "65f0c1a2b3c4d5e6f7a8b9c0", "auth0|abc123", "65f0c1a2b3c4d5e6f7a8b9c0-auth0_abc123"},
		{"student with hyphen", "t1", "google-oauth2|1099", "t1-google%2Doauth2_1099"},
		{"student with underscore", "t1", "user_name", "t1-user%5Fname"},
		{"student with underscore and pipe", "t1", "a_|b", "t1-a%5F_b"},
		{"tutor with hyphen", "tutor-7", "s", "tutor%2D7-s"},
		{"tutor with underscore", "tutor_7", "s", "tutor_7-s"},
		{"percent signs", "100%", "%2D", "100%25-%252D"},
		{"unicode", "тьютор", "студент|1", "тьютор-студент_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := room.Compose(tt.tutor, tt.student)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)

			tutor, student, err := room.Parse(id)
			require.NoError(t, err)
			assert.Equal(t, tt.tutor, tutor)
			assert.Equal(t, tt.student, student)
		})
	}
}

func TestCompose_RejectsEmptyHalves(t *testing.T) {
	_, err := room.Compose("", "s")
	assert.ErrorIs(t, err, room.ErrInvalidRoom)

	_, err = room.Compose("t", "")
	assert.ErrorIs(t, err, room.ErrInvalidRoom)
}

func TestParse_Malformed(t *testing.T) {
	for _, id := range []string{
		"",
		"nohyphen",
		"-student",
		"tutor-",
		"a-b-c",
		"t-s%",
		"t-s%2",
		"t-s%41",
		"t%5F-s",
	} {
		_, _, err := room.Parse(id)
		assert.ErrorIs(t, err, room.ErrInvalidRoom, "room id %q", id)
	}
}

func TestIsParticipant(t *testing.T) {
	id, err := room.Compose("tutorProfile1", "auth0|student")
	require.NoError(t, err)

	assert.True(t, room.IsParticipant(id, "auth0|student", ""), "student half")
	assert.True(t, room.IsParticipant(id, "auth0|tutorUser", "tutorProfile1"), "owner of tutor profile")
	assert.False(t, room.IsParticipant(id, "auth0|someoneElse", ""), "third party")
	assert.False(t, room.IsParticipant(id, "auth0|someoneElse", "tutorProfile2"), "other tutor")
	assert.False(t, room.IsParticipant(id, "tutorProfile1", ""), "tutor profile id used as user id")
	assert.False(t, room.IsParticipant(id, "", ""), "anonymous")
	assert.False(t, room.IsParticipant("garbage", "auth0|student", ""), "malformed room")
}

func TestCounterpart(t *testing.T) {
	id, err := room.Compose("tp1", "auth0|s")
	require.NoError(t, err)

	other, isTutor, ok := room.Counterpart(id, "auth0|t", "tp1")
	assert.True(t, ok)
	assert.True(t, isTutor)
	assert.Equal(t, "auth0|s", other)

	other, isTutor, ok = room.Counterpart(id, "auth0|s", "")
	assert.True(t, ok)
	assert.False(t, isTutor)
	assert.Equal(t, "tp1", other)

	_, _, ok = room.Counterpart(id, "auth0|x", "tp9")
	assert.False(t, ok)
}
