package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	sessionFormatVersionCurrent = 1
)

// Encode serializes s into the compact binary layout used by persistent stores:
//
//	version(1) status(1) updatedAt(8, BE) accessLen(2, BE) access refreshLen(2, BE) refresh
func Encode(s Session) ([]byte, error) {
	if !s.Valid() {
		return nil, ErrInvalidSession
	}
	if len(s.AccessToken) > math.MaxUint16 {
		return nil, errors.New("access token too long")
	}
	if len(s.RefreshToken) > math.MaxUint16 {
		return nil, errors.New("refresh token too long")
	}

	var buf bytes.Buffer
	buf.Grow(14 + len(s.AccessToken) + len(s.RefreshToken))

	buf.WriteByte(sessionFormatVersionCurrent)
	buf.WriteByte(byte(s.Status))

	if err := binary.Write(&buf, binary.BigEndian, s.UpdatedAt); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.AccessToken))); err != nil {
		return nil, err
	}
	buf.WriteString(s.AccessToken)

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.RefreshToken))); err != nil {
		return nil, err
	}
	buf.WriteString(s.RefreshToken)

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode].
func Decode(data []byte) (Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Session{}, err
	}
	if version != sessionFormatVersionCurrent {
		return Session{}, errors.New("invalid session version")
	}

	status, err := reader.ReadByte()
	if err != nil {
		return Session{}, err
	}
	if Status(status) > StatusExpired {
		return Session{}, errors.New("invalid session status")
	}

	s := Session{Status: Status(status)}

	if err := binary.Read(reader, binary.BigEndian, &s.UpdatedAt); err != nil {
		return Session{}, err
	}

	access, err := readString16(reader)
	if err != nil {
		return Session{}, err
	}
	s.AccessToken = access

	refresh, err := readString16(reader)
	if err != nil {
		return Session{}, err
	}
	s.RefreshToken = refresh

	if reader.Len() != 0 {
		return Session{}, errors.New("trailing session bytes")
	}
	if !s.Valid() {
		return Session{}, ErrInvalidSession
	}

	return s, nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}
