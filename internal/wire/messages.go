package wire

import "encoding/binary"

// Frame is one fixed-size wire record.
type Frame [FrameLen]byte

// Bytes returns the frame as a slice for writing to a connection.
func (f *Frame) Bytes() []byte { return f[:] }

func simple(tag byte) Frame {
	var f Frame
	f[0] = tag
	f[1] = EOT
	return f
}

func isSimple(frame []byte, tag byte) bool {
	return len(frame) >= 2 && frame[0] == tag
}

// EncodeAcc, EncodeNop, EncodeUsed, EncodeCon, EncodeGo, EncodeStop,
// EncodeStart, EncodeMine, EncodeLeadE build the bare tag+EOT records.
func EncodeAcc() Frame   { return simple(TagAcc) }
func EncodeNop() Frame   { return simple(TagNop) }
func EncodeUsed() Frame  { return simple(TagUsed) }
func EncodeCon() Frame   { return simple(TagCon) }
func EncodeGo() Frame    { return simple(TagGo) }
func EncodeStop() Frame  { return simple(TagStop) }
func EncodeStart() Frame { return simple(TagStart) }
func EncodeMine() Frame  { return simple(TagMine) }
func EncodeLeadE() Frame { return simple(TagLeadE) }
func EncodeFull() Frame  { return simple(TagFull) }

func IsAcc(frame []byte) bool   { return isSimple(frame, TagAcc) }
func IsNop(frame []byte) bool   { return isSimple(frame, TagNop) }
func IsUsed(frame []byte) bool  { return isSimple(frame, TagUsed) }
func IsCon(frame []byte) bool   { return isSimple(frame, TagCon) }
func IsGo(frame []byte) bool    { return isSimple(frame, TagGo) }
func IsStop(frame []byte) bool  { return isSimple(frame, TagStop) }
func IsStart(frame []byte) bool { return isSimple(frame, TagStart) }
func IsMine(frame []byte) bool  { return isSimple(frame, TagMine) }
func IsLeadE(frame []byte) bool { return isSimple(frame, TagLeadE) }
func IsFull(frame []byte) bool  { return isSimple(frame, TagFull) }

// EncodeLogin builds a LOGIN record: '\n' w<username:26>'\n' x<password:26> EOT.
func EncodeLogin(username, password string) Frame {
	var f Frame
	i := 0
	f[i] = TagLogin
	i++
	f[i] = '\n'
	i++
	f[i] = KeyUsername
	i++
	u := padName(username)
	copy(f[i:i+NameLen], u[:])
	i += NameLen
	f[i] = '\n'
	i++
	f[i] = KeyPassword
	i++
	p := padName(password)
	copy(f[i:i+NameLen], p[:])
	i += NameLen
	f[i] = EOT
	return f
}

// DecodeLogin parses a LOGIN record using the cursor primitives.
func DecodeLogin(frame []byte) (username, password string, ok bool) {
	if len(frame) == 0 || frame[0] != TagLogin {
		return "", "", false
	}
	cur := NewCursor(frame[1:])
	if !cur.MatchHeader([]byte{'\n'}) {
		return "", "", false
	}
	uRaw, ok1 := cur.MatchData([]byte{KeyUsername})
	if !ok1 {
		return "", "", false
	}
	pRaw, ok2 := cur.MatchData([]byte{KeyPassword})
	if !ok2 {
		return "", "", false
	}
	return trimName(uRaw), trimName(pRaw), true
}

// EncodeQueue builds a QUEUE record carrying a 0-based position.
func EncodeQueue(position uint16) Frame {
	var f Frame
	f[0] = TagQueue
	binary.BigEndian.PutUint16(f[1:3], position)
	f[3] = EOT
	return f
}

// DecodeQueue parses a QUEUE record.
func DecodeQueue(frame []byte) (position uint16, ok bool) {
	if len(frame) < 4 || frame[0] != TagQueue {
		return 0, false
	}
	return binary.BigEndian.Uint16(frame[1:3]), true
}

// EncodeTime builds a TIME record carrying elapsed seconds and nanoseconds.
func EncodeTime(sec, nano uint64) Frame {
	var f Frame
	f[0] = TagTime
	binary.BigEndian.PutUint64(f[1:9], sec)
	binary.BigEndian.PutUint64(f[9:17], nano)
	f[17] = EOT
	return f
}

// DecodeTime parses a TIME record.
func DecodeTime(frame []byte) (sec, nano uint64, ok bool) {
	if len(frame) < 18 || frame[0] != TagTime {
		return 0, 0, false
	}
	sec = binary.BigEndian.Uint64(frame[1:9])
	nano = binary.BigEndian.Uint64(frame[9:17])
	return sec, nano, true
}

// EncodeRev builds a REV record naming the revealed cell (0..80).
func EncodeRev(cell uint8) Frame {
	var f Frame
	f[0] = TagRev
	f[1] = cell
	f[2] = EOT
	return f
}

// DecodeRev parses a REV record.
func DecodeRev(frame []byte) (cell uint8, ok bool) {
	if len(frame) < 3 || frame[0] != TagRev {
		return 0, false
	}
	return frame[1], true
}

// EncodeFlag builds a FLAG record naming the toggled cell (0..80).
func EncodeFlag(cell uint8) Frame {
	var f Frame
	f[0] = TagFlag
	f[1] = cell
	f[2] = EOT
	return f
}

// DecodeFlag parses a FLAG record.
func DecodeFlag(frame []byte) (cell uint8, ok bool) {
	if len(frame) < 3 || frame[0] != TagFlag {
		return 0, false
	}
	return frame[1], true
}

// EncodeLeft builds a LEFT record carrying the remaining mine count.
func EncodeLeft(minesLeft uint8) Frame {
	var f Frame
	f[0] = TagLeft
	f[1] = minesLeft
	f[2] = EOT
	return f
}

// DecodeLeft parses a LEFT record.
func DecodeLeft(frame []byte) (minesLeft uint8, ok bool) {
	if len(frame) < 3 || frame[0] != TagLeft {
		return 0, false
	}
	return frame[1], true
}

// EncodeAdj builds an ADJ record carrying the full 81-cell map.
func EncodeAdj(m [NumTiles]byte) Frame {
	var f Frame
	f[0] = TagAdj
	f[1] = '\n'
	copy(f[2:2+NumTiles], m[:])
	f[2+NumTiles] = EOT
	return f
}

// DecodeAdj parses an ADJ record.
func DecodeAdj(frame []byte) (m [NumTiles]byte, ok bool) {
	if len(frame) < 2+NumTiles+1 || frame[0] != TagAdj || frame[1] != '\n' {
		return m, false
	}
	copy(m[:], frame[2:2+NumTiles])
	return m, true
}

// EncodeLeadP builds a LEAD_P request for the given 0-based page.
func EncodeLeadP(page uint16) Frame {
	var f Frame
	f[0] = TagLeadP
	binary.BigEndian.PutUint16(f[1:3], page)
	f[3] = EOT
	return f
}

// DecodeLeadP parses a LEAD_P record.
func DecodeLeadP(frame []byte) (page uint16, ok bool) {
	if len(frame) < 4 || frame[0] != TagLeadP {
		return 0, false
	}
	return binary.BigEndian.Uint16(frame[1:3]), true
}
