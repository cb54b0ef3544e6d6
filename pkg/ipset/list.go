package ipset

import (
	"strconv"
	"strings"
)

// ListResult is the outcome of a List call. Exactly one field is set:
// Names when the session was in terse mode, Set otherwise.
type ListResult struct {
	Names []string
	Set   *SetInfo
}

// Member is one listed element with its extension options, in the order
// the native library printed them.
type Member struct {
	Data    DataType
	Options []AddOption
}

// SetInfo is the structured record of a full listing.
type SetInfo struct {
	Name         string
	TypeName     string
	Revision     int
	Header       Header
	SizeInMemory int
	References   int
	NumEntries   int
	// Members is nil until the "Members:" marker was seen.
	Members []Member

	inMembers bool
}

// Header carries the decoded "Header:" line of a listing.
type Header struct {
	IPv6       bool
	HashSize   uint32
	BucketSize *uint32
	MaxElem    uint32
	Counters   bool
	Comment    bool
	SkbInfo    bool
	InitVal    *uint32
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, wrapError(ErrIntParse, s, err)
	}
	return v, nil
}

// addLine consumes one non-empty line of normal-mode list output. Lines
// before the "Members:" marker are header fields; lines after it are
// elements of type t.
func (r *SetInfo) addLine(line string, t SetType) error {
	if !r.inMembers {
		return r.addHeaderLine(line)
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return newError(ErrInvalidOutput, line, true)
	}
	data := t.NewData()
	if err := data.parse(fields[0]); err != nil {
		return newError(ErrInvalidOutput, line, true)
	}
	opts, err := parseMemberOptions(fields[1:])
	if err != nil {
		return err
	}
	r.Members = append(r.Members, Member{Data: data, Options: opts})
	return nil
}

func (r *SetInfo) addHeaderLine(line string) error {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return newError(ErrInvalidOutput, line, true)
	}
	value = strings.TrimSpace(value)
	var err error
	switch key {
	case "Name":
		r.Name = value
	case "Type":
		r.TypeName = value
	case "Revision":
		r.Revision, err = parseInt(value)
	case "Header":
		r.Header, err = parseHeader(value)
	case "Size in memory":
		r.SizeInMemory, err = parseInt(value)
	case "References":
		r.References, err = parseInt(value)
	case "Number of entries":
		r.NumEntries, err = parseInt(value)
	case "Members":
		r.inMembers = true
		r.Members = []Member{}
	default:
		return newError(ErrInvalidOutput, line, true)
	}
	return err
}

// parseMemberOptions consumes the tokens following a member's value as
// "key value" pairs, except nomatch which stands alone.
func parseMemberOptions(fields []string) ([]AddOption, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	var opts []AddOption
	i := 0
	for i < len(fields) {
		if fields[i] == "nomatch" {
			opts = append(opts, Nomatch{})
			i++
			continue
		}
		if i+1 >= len(fields) {
			return nil, newError(ErrInvalidOutput, strings.Join(fields, " "), true)
		}
		value := fields[i+1]
		switch fields[i] {
		case "timeout":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, wrapError(ErrIntParse, value, err)
			}
			opts = append(opts, Timeout(v))
		case "packets":
			v, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, wrapError(ErrIntParse, value, err)
			}
			opts = append(opts, Packets(v))
		case "bytes":
			// The native library occasionally leaks stray NUL bytes
			// into the counter value.
			v, err := strconv.ParseUint(strings.ReplaceAll(value, "\x00", ""), 10, 64)
			if err != nil {
				return nil, wrapError(ErrIntParse, value, err)
			}
			opts = append(opts, Bytes(v))
		case "comment":
			opts = append(opts, Comment(value))
		case "skbmark":
			mark, err := parseSkbMark(value)
			if err != nil {
				return nil, err
			}
			opts = append(opts, mark)
		case "skbprio":
			prio, err := parseSkbPrio(value)
			if err != nil {
				return nil, err
			}
			opts = append(opts, prio)
		case "skbqueue":
			v, err := strconv.ParseUint(value, 10, 16)
			if err != nil {
				return nil, wrapError(ErrIntParse, value, err)
			}
			opts = append(opts, SkbQueue(v))
		default:
			return nil, newError(ErrInvalidOutput, strings.Join(fields, " "), true)
		}
		i += 2
	}
	return opts, nil
}

func parseHexU32(s string) (uint32, error) {
	if !strings.HasPrefix(s, "0x") {
		return 0, newError(ErrIntParse, s, true)
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	if err != nil {
		return 0, wrapError(ErrIntParse, s, err)
	}
	return uint32(v), nil
}

// parseSkbMark decodes "0xMARK" or "0xMARK/0xMASK"; the mask defaults to
// all ones when absent.
func parseSkbMark(s string) (SkbMark, error) {
	markText, maskText, found := strings.Cut(s, "/")
	mark, err := parseHexU32(markText)
	if err != nil {
		return SkbMark{}, err
	}
	mask := ^uint32(0)
	if found {
		mask, err = parseHexU32(maskText)
		if err != nil {
			return SkbMark{}, err
		}
	}
	return SkbMark{Mark: mark, Mask: mask}, nil
}

// parseSkbPrio decodes "MAJOR:MINOR", both hex without prefix.
func parseSkbPrio(s string) (SkbPrio, error) {
	majorText, minorText, found := strings.Cut(s, ":")
	if !found {
		return SkbPrio{}, newError(ErrInvalidOutput, s, true)
	}
	major, err := strconv.ParseUint(majorText, 16, 16)
	if err != nil {
		return SkbPrio{}, wrapError(ErrIntParse, s, err)
	}
	minor, err := strconv.ParseUint(minorText, 16, 16)
	if err != nil {
		return SkbPrio{}, wrapError(ErrIntParse, s, err)
	}
	return SkbPrio{Major: uint16(major), Minor: uint16(minor)}, nil
}

// parseHeader decodes the value of the "Header:" line: key/value tokens
// with the extension flags standing alone.
func parseHeader(s string) (Header, error) {
	tokens := strings.Fields(s)
	var h Header
	i := 0
	for i < len(tokens) {
		switch tokens[i] {
		case "counters":
			h.Counters = true
			i++
			continue
		case "comment":
			h.Comment = true
			i++
			continue
		case "skbinfo":
			h.SkbInfo = true
			i++
			continue
		}
		if i+1 >= len(tokens) {
			return Header{}, newError(ErrInvalidOutput, s, true)
		}
		value := tokens[i+1]
		switch tokens[i] {
		case "family":
			h.IPv6 = value == "inet6"
		case "hashsize":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Header{}, wrapError(ErrIntParse, value, err)
			}
			h.HashSize = uint32(v)
		case "bucketsize":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Header{}, wrapError(ErrIntParse, value, err)
			}
			size := uint32(v)
			h.BucketSize = &size
		case "maxelem":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return Header{}, wrapError(ErrIntParse, value, err)
			}
			h.MaxElem = uint32(v)
		case "initval":
			v, err := parseHexU32(value)
			if err != nil {
				return Header{}, err
			}
			h.InitVal = &v
		default:
			return Header{}, newError(ErrInvalidOutput, s, true)
		}
		i += 2
	}
	return h, nil
}
