// Package room derives the identifier of a tutor/student conversation and
// answers who is allowed to take part in it.
//
// A room id is "<tutor>-<student>" where both halves are escaped so that the
// separator never occurs inside either of them:
//
//	'%' -> "%25"   '-' -> "%2D"            (both halves)
//	'_' -> "%5F"   then '|' -> '_'          (student half only)
//
// Auth provider ids such as "auth0|abc" therefore keep their usual look
// ("auth0_abc") while ids containing hyphens or underscores still round-trip.
package room

import (
	"errors"
	"strings"
)

// Separator splits the tutor half from the student half.
const Separator = "-"

// ErrInvalidRoom is returned for empty halves or ids that cannot be parsed.
var ErrInvalidRoom = errors.New("invalid room id")

var (
	tutorEscaper   = strings.NewReplacer("%", "%25", "-", "%2D")
	studentEscaper = strings.NewReplacer("%", "%25", "-", "%2D", "_", "%5F", "|", "_")
)

// Compose builds the room id for a tutor profile and a student account.
func Compose(tutorID, studentID string) (string, error) {
	if tutorID == "" || studentID == "" {
		return "", ErrInvalidRoom
	}
	return TutorSegment(tutorID) + Separator + StudentSegment(studentID), nil
}

// TutorSegment returns the escaped tutor half as it appears in a room id.
func TutorSegment(tutorID string) string {
	return tutorEscaper.Replace(tutorID)
}

// StudentSegment returns the escaped student half as it appears in a room id.
func StudentSegment(studentID string) string {
	return studentEscaper.Replace(studentID)
}

// Parse splits a room id back into the ids that composed it.
func Parse(roomID string) (tutorID, studentID string, err error) {
	tutorPart, studentPart, ok := strings.Cut(roomID, Separator)
	if !ok || tutorPart == "" || studentPart == "" || strings.Contains(studentPart, Separator) {
		return "", "", ErrInvalidRoom
	}

	tutorID, err = unescape(tutorPart, false)
	if err != nil {
		return "", "", err
	}
	studentID, err = unescape(studentPart, true)
	if err != nil {
		return "", "", err
	}
	return tutorID, studentID, nil
}

// IsParticipant reports whether the caller is the student of the room or owns
// its tutor profile. Malformed ids never authorize anybody.
func IsParticipant(roomID, callerID, callerTutorProfileID string) bool {
	tutorID, studentID, err := Parse(roomID)
	if err != nil {
		return false
	}
	if callerID != "" && callerID == studentID {
		return true
	}
	return callerTutorProfileID != "" && callerTutorProfileID == tutorID
}

// Counterpart tells which side of the room the caller is on and returns the
// id of the other half: the student id for a tutor, the tutor profile id for
// a student. ok is false when the caller is not a participant.
func Counterpart(roomID, callerID, callerTutorProfileID string) (other string, callerIsTutor bool, ok bool) {
	tutorID, studentID, err := Parse(roomID)
	if err != nil {
		return "", false, false
	}
	if callerTutorProfileID != "" && callerTutorProfileID == tutorID {
		return studentID, true, true
	}
	if callerID != "" && callerID == studentID {
		return tutorID, false, true
	}
	return "", false, false
}

func unescape(s string, student bool) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%':
			if i+2 >= len(s) {
				return "", ErrInvalidRoom
			}
			switch s[i+1 : i+3] {
			case "25":
				b.WriteByte('%')
			case "2D":
				b.WriteByte('-')
			case "5F":
				if !student {
					return "", ErrInvalidRoom
				}
				b.WriteByte('_')
			default:
				return "", ErrInvalidRoom
			}
			i += 2
		case c == '_' && student:
			b.WriteByte('|')
		default:
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return "", ErrInvalidRoom
	}
	return b.String(), nil
}
