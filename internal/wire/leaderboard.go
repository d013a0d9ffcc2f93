package wire

import "encoding/binary"

// LeaderboardEntry is one ranked row as carried on the wire.
type LeaderboardEntry struct {
	Username string
	Seconds  uint64
	Nanos    uint64
	Played   uint32
	Won      uint32
}

const (
	leadREntrySize = 1 + NameLen + 1 + 8 + 1 + 8 + 1 + 4 + 1 + 4 + 1 // w<name>\n sec\n nano\n played\n won\n
	leadRHeaderLen = 2                                               // tag + '\n'

	// MaxLeadREntries is how many rows fit in one LEAD_R record. The
	// original protocol's 512-byte buffer cannot hold a full
	// LEADERBOARD_ENTRIES=10 page (10*entry+header+EOT = 563 bytes) without
	// overflowing; LeadRFrameLen below gives LEAD_R its own, larger record
	// size instead of truncating pages or overflowing a shared buffer.
	MaxLeadREntries = 10

	// LeadRFrameLen is the fixed size of a LEAD_R record: big enough for a
	// full page, every other message still uses FrameLen.
	LeadRFrameLen = leadRHeaderLen + MaxLeadREntries*leadREntrySize + 1
)

// EncodeLeadR builds a LEAD_R record for up to MaxLeadREntries rows.
// Extra rows beyond MaxLeadREntries are dropped; callers should never pass
// more than a single leaderboard page.
func EncodeLeadR(entries []LeaderboardEntry) []byte {
	if len(entries) > MaxLeadREntries {
		entries = entries[:MaxLeadREntries]
	}
	buf := make([]byte, LeadRFrameLen)
	buf[0] = TagLeadR
	buf[1] = '\n'
	p := 2
	for _, e := range entries {
		buf[p] = KeyUsername
		p++
		name := padName(e.Username)
		copy(buf[p:p+NameLen], name[:])
		p += NameLen
		buf[p] = '\n'
		p++

		binary.BigEndian.PutUint64(buf[p:p+8], e.Seconds)
		p += 8
		buf[p] = '\n'
		p++

		binary.BigEndian.PutUint64(buf[p:p+8], e.Nanos)
		p += 8
		buf[p] = '\n'
		p++

		binary.BigEndian.PutUint32(buf[p:p+4], e.Played)
		p += 4
		buf[p] = '\n'
		p++

		binary.BigEndian.PutUint32(buf[p:p+4], e.Won)
		p += 4
		buf[p] = '\n'
		p++
	}
	buf[p] = EOT
	return buf
}

// DecodeLeadR parses a LEAD_R record into its ranked rows.
func DecodeLeadR(frame []byte) (entries []LeaderboardEntry, ok bool) {
	if len(frame) < 2 || frame[0] != TagLeadR {
		return nil, false
	}
	cur := NewCursor(frame[1:])
	if !cur.MatchHeader([]byte{'\n'}) {
		return nil, false
	}
	for {
		nameRaw, ok := cur.MatchData([]byte{KeyUsername})
		if !ok {
			break
		}
		secRaw, ok := cur.matchFixed(8)
		if !ok {
			break
		}
		nanoRaw, ok := cur.matchFixed(8)
		if !ok {
			break
		}
		playedRaw, ok := cur.matchFixed(4)
		if !ok {
			break
		}
		wonRaw, ok := cur.matchFixed(4)
		if !ok {
			break
		}
		entries = append(entries, LeaderboardEntry{
			Username: trimName(nameRaw),
			Seconds:  binary.BigEndian.Uint64(secRaw),
			Nanos:    binary.BigEndian.Uint64(nanoRaw),
			Played:   binary.BigEndian.Uint32(playedRaw),
			Won:      binary.BigEndian.Uint32(wonRaw),
		})
	}
	return entries, true
}

// matchFixed reads exactly n bytes followed by a '\n', consuming both.
// Unlike MatchData it has no key to match against — the LEAD_R binary
// sub-fields are positional, not keyed.
func (c *Cursor) matchFixed(n int) ([]byte, bool) {
	if c.pos+n+1 > len(c.buf) || c.buf[c.pos+n] != '\n' {
		return nil, false
	}
	out := append([]byte(nil), c.buf[c.pos:c.pos+n]...)
	c.pos += n + 1
	return out, true
}
