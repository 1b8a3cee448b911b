// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package resources

import (
	"encoding/binary"
	"golang.org/x/text/encoding/unicode"
)

// Chunk type tags from the AXML/ARSC common chunk header, grounded on
// `original_source/lib/dw_resources/src/chunk.rs`'s chunk-type enumeration
// (not retrieved whole, reconstructed from `parsers.rs`'s usage and the
// well-known AOSP `ResourceTypes.h` layout it mirrors).
const (
	chunkStringPool    = 0x0001
	chunkXML           = 0x0003
	chunkXMLStartNS    = 0x0100
	chunkXMLEndNS      = 0x0101
	chunkXMLStartElem  = 0x0102
	chunkXMLEndElem    = 0x0103
	chunkXMLCData      = 0x0104
	chunkXMLResourceID = 0x0180
)

const stringPoolUTF8Flag = 1 << 8

// EventKind discriminates the flattened binary-XML event stream, mirroring
// `original_source`'s `XmlEvent` enum.
type EventKind int

const (
	EventStartNamespace EventKind = iota
	EventEndNamespace
	EventStartElement
	EventEndElement
	EventCData
)

// Attribute is one attribute on a StartElement event, with its typed value
// already decoded.
type Attribute struct {
	Namespace string // "" if none
	Name      string
	RawValue  string // the attribute's raw string form, "" if not string-backed
	Value     Value
}

// Event is one node in the flattened binary-XML body.
type Event struct {
	Kind      EventKind
	Namespace string // namespace URI, for Start/EndNamespace and namespaced elements
	Prefix    string // namespace prefix, for Start/EndNamespace
	Name      string // element name, for Start/EndElement
	Attrs     []Attribute
	CData     string
}

// Doc is a parsed binary XML document: the flattened event stream plus the
// string pool it was resolved against. The xpath and manifest helpers read
// only the already-resolved strings in Events, not Pool.
type Doc struct {
	Pool   []string
	Events []Event
}

// ParseXML decodes an AXML document (the on-disk binary form of
// AndroidManifest.xml and Android layout/values XML resources).
func ParseXML(data []byte) (*Doc, error) {
	if len(data) < 8 {
		return nil, newError(ErrStructure, "axml", nil)
	}
	typ := binary.LittleEndian.Uint16(data[0:2])
	if typ != chunkXML {
		return nil, newError(ErrStructure, "not an XML chunk", nil)
	}
	size := binary.LittleEndian.Uint32(data[4:8])
	if int(size) > len(data) {
		return nil, newError(ErrStructure, "xml chunk size exceeds buffer", nil)
	}
	body := data[8:size]

	doc := &Doc{}
	off := 0
	for off+8 <= len(body) {
		ctyp := binary.LittleEndian.Uint16(body[off:])
		chdr := binary.LittleEndian.Uint16(body[off+2:])
		csize := binary.LittleEndian.Uint32(body[off+4:])
		if csize < uint32(chdr) || int(off)+int(csize) > len(body) {
			return nil, newError(ErrStructure, "malformed chunk", nil)
		}
		chunk := body[off : off+int(csize)]

		switch ctyp {
		case chunkStringPool:
			pool, err := parseStringPool(chunk)
			if err != nil {
				return nil, err
			}
			doc.Pool = pool

		case chunkXMLResourceID:
			// resource-id map: not needed to resolve attribute values.

		case chunkXMLStartNS, chunkXMLEndNS:
			ev, err := parseNamespaceEvent(chunk, ctyp, doc.Pool)
			if err != nil {
				return nil, err
			}
			doc.Events = append(doc.Events, ev)

		case chunkXMLStartElem:
			ev, err := parseStartElement(chunk, doc.Pool)
			if err != nil {
				return nil, err
			}
			doc.Events = append(doc.Events, ev)

		case chunkXMLEndElem:
			ev, err := parseEndElement(chunk, doc.Pool)
			if err != nil {
				return nil, err
			}
			doc.Events = append(doc.Events, ev)

		case chunkXMLCData:
			ev, err := parseCData(chunk, doc.Pool)
			if err != nil {
				return nil, err
			}
			doc.Events = append(doc.Events, ev)
		}

		off += int(csize)
	}
	return doc, nil
}

func poolAt(pool []string, idx uint32) string {
	if idx == 0xffffffff || int(idx) >= len(pool) {
		return ""
	}
	return pool[idx]
}

func parseStringPool(chunk []byte) ([]string, error) {
	if len(chunk) < 28 {
		return nil, newError(ErrStructure, "string pool header", nil)
	}
	stringCount := binary.LittleEndian.Uint32(chunk[8:])
	flags := binary.LittleEndian.Uint32(chunk[16:])
	stringsStart := binary.LittleEndian.Uint32(chunk[20:])
	utf8 := flags&stringPoolUTF8Flag != 0

	offsets := make([]uint32, stringCount)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(chunk[28+i*4:])
	}

	data := chunk[stringsStart:]
	out := make([]string, stringCount)
	for i, o := range offsets {
		s, err := decodePoolString(data[o:], utf8)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// decodePoolString decodes a single length-prefixed, NUL-terminated string
// pool entry. UTF-8 pools store a UTF-16 length followed by a UTF-8 length
// (both 7-bit-per-byte, continuation in the high bit of a 2-byte encoding);
// UTF-16 pools store only the UTF-16 length, same encoding, and the payload
// is UTF-16LE — decoded via golang.org/x/text/encoding/unicode's
// `unicode.UTF16(...)` transformer.
func decodePoolString(buf []byte, utf8 bool) (string, error) {
	if utf8 {
		_, n1 := readPoolLen(buf)
		byteLen, n2 := readPoolLen(buf[n1:])
		start := n1 + n2
		if start+byteLen > len(buf) {
			return "", newError(ErrStructure, "utf8 pool string truncated", nil)
		}
		return string(buf[start : start+byteLen]), nil
	}

	charLen, n := readPoolLen16(buf)
	byteLen := charLen * 2
	if n+byteLen > len(buf) {
		return "", newError(ErrStructure, "utf16 pool string truncated", nil)
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := decoder.Bytes(buf[n : n+byteLen])
	if err != nil {
		return "", newError(ErrStructure, "utf16 pool string decode", err)
	}
	return string(out), nil
}

func readPoolLen(buf []byte) (int, int) {
	if len(buf) == 0 {
		return 0, 0
	}
	if buf[0]&0x80 == 0 {
		return int(buf[0]), 1
	}
	return int(buf[0]&0x7f)<<8 | int(buf[1]), 2
}

func readPoolLen16(buf []byte) (int, int) {
	v := binary.LittleEndian.Uint16(buf)
	if v&0x8000 == 0 {
		return int(v), 2
	}
	v2 := binary.LittleEndian.Uint16(buf[2:])
	return int(v&0x7fff)<<16 | int(v2), 4
}

// Every XML node chunk shares a 16-byte common header (8-byte chunk header
// + lineNumber + comment); the type-specific fields follow at offset 16.
const xmlNodeHeaderSize = 16

func parseNamespaceEvent(chunk []byte, ctyp uint16, pool []string) (Event, error) {
	if len(chunk) < xmlNodeHeaderSize+8 {
		return Event{}, newError(ErrStructure, "namespace node", nil)
	}
	prefixIdx := binary.LittleEndian.Uint32(chunk[xmlNodeHeaderSize:])
	uriIdx := binary.LittleEndian.Uint32(chunk[xmlNodeHeaderSize+4:])
	kind := EventStartNamespace
	if ctyp == chunkXMLEndNS {
		kind = EventEndNamespace
	}
	return Event{Kind: kind, Prefix: poolAt(pool, prefixIdx), Namespace: poolAt(pool, uriIdx)}, nil
}

func parseStartElement(chunk []byte, pool []string) (Event, error) {
	if len(chunk) < xmlNodeHeaderSize+20 {
		return Event{}, newError(ErrStructure, "start element node", nil)
	}
	nsIdx := binary.LittleEndian.Uint32(chunk[xmlNodeHeaderSize:])
	nameIdx := binary.LittleEndian.Uint32(chunk[xmlNodeHeaderSize+4:])
	attrStart := binary.LittleEndian.Uint16(chunk[xmlNodeHeaderSize+8:])
	attrSize := binary.LittleEndian.Uint16(chunk[xmlNodeHeaderSize+10:])
	attrCount := binary.LittleEndian.Uint16(chunk[xmlNodeHeaderSize+12:])

	ev := Event{Kind: EventStartElement, Namespace: poolAt(pool, nsIdx), Name: poolAt(pool, nameIdx)}
	base := xmlNodeHeaderSize + int(attrStart)
	for i := 0; i < int(attrCount); i++ {
		o := base + i*int(attrSize)
		if o+20 > len(chunk) {
			return Event{}, newError(ErrStructure, "attribute truncated", nil)
		}
		attrNsIdx := binary.LittleEndian.Uint32(chunk[o:])
		attrNameIdx := binary.LittleEndian.Uint32(chunk[o+4:])
		rawValueIdx := binary.LittleEndian.Uint32(chunk[o+8:])
		dt := dataType(chunk[o+15])
		data := binary.LittleEndian.Uint32(chunk[o+16:])
		val, err := decodeValue(data, dt, pool)
		if err != nil {
			return Event{}, err
		}
		ev.Attrs = append(ev.Attrs, Attribute{
			Namespace: poolAt(pool, attrNsIdx),
			Name:      poolAt(pool, attrNameIdx),
			RawValue:  poolAt(pool, rawValueIdx),
			Value:     val,
		})
	}
	return ev, nil
}

func parseEndElement(chunk []byte, pool []string) (Event, error) {
	if len(chunk) < xmlNodeHeaderSize+8 {
		return Event{}, newError(ErrStructure, "end element node", nil)
	}
	nsIdx := binary.LittleEndian.Uint32(chunk[xmlNodeHeaderSize:])
	nameIdx := binary.LittleEndian.Uint32(chunk[xmlNodeHeaderSize+4:])
	return Event{Kind: EventEndElement, Namespace: poolAt(pool, nsIdx), Name: poolAt(pool, nameIdx)}, nil
}

func parseCData(chunk []byte, pool []string) (Event, error) {
	if len(chunk) < xmlNodeHeaderSize+4 {
		return Event{}, newError(ErrStructure, "cdata node", nil)
	}
	dataIdx := binary.LittleEndian.Uint32(chunk[xmlNodeHeaderSize:])
	return Event{Kind: EventCData, CData: poolAt(pool, dataIdx)}, nil
}
