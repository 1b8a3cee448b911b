// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package resources

import (
	"encoding/binary"
	"testing"
)

// buildUTF8StringPool assembles a minimal ASCII-only, UTF-8-flagged
// ResStringPool chunk from strs, used to hand-build synthetic AXML
// fixtures (no real AndroidManifest.xml corpus ships with this module).
func buildUTF8StringPool(strs []string) []byte {
	var entries [][]byte
	for _, s := range strs {
		e := []byte{byte(len(s)), byte(len(s))}
		e = append(e, []byte(s)...)
		e = append(e, 0x00)
		entries = append(entries, e)
	}

	const headerSize = 28
	offsets := make([]byte, len(entries)*4)
	pos := uint32(0)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(offsets[i*4:], pos)
		pos += uint32(len(e))
	}
	stringsStart := uint32(headerSize + len(offsets))

	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(buf[0:], chunkStringPool)
	binary.LittleEndian.PutUint16(buf[2:], headerSize)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(entries)))
	binary.LittleEndian.PutUint32(buf[12:], 0)
	binary.LittleEndian.PutUint32(buf[16:], stringPoolUTF8Flag)
	binary.LittleEndian.PutUint32(buf[20:], stringsStart)
	binary.LittleEndian.PutUint32(buf[24:], 0)
	buf = append(buf, offsets...)
	for _, e := range entries {
		buf = append(buf, e...)
	}
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)))
	return buf
}

func nodeHeader(typ uint16, size uint32) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint16(b[0:], typ)
	binary.LittleEndian.PutUint16(b[2:], 16)
	binary.LittleEndian.PutUint32(b[4:], size)
	// lineNumber=0, comment=0xffffffff
	binary.LittleEndian.PutUint32(b[12:], 0xffffffff)
	return b
}

// buildStartElement builds a ResXMLTree_node + attrExt chunk for a single
// attribute whose value is a string-pool reference.
func buildStartElement(nameIdx uint32, attrNameIdx, attrValueIdx uint32) []byte {
	const size = 16 + 20 + 20 // node header + attrExt fixed + one attribute
	b := nodeHeader(chunkXMLStartElem, size)
	ext := make([]byte, 20)
	binary.LittleEndian.PutUint32(ext[0:], 0xffffffff) // ns
	binary.LittleEndian.PutUint32(ext[4:], nameIdx)
	binary.LittleEndian.PutUint16(ext[8:], 20) // attributeStart
	binary.LittleEndian.PutUint16(ext[10:], 20) // attributeSize
	binary.LittleEndian.PutUint16(ext[12:], 1) // attributeCount
	b = append(b, ext...)

	attr := make([]byte, 20)
	binary.LittleEndian.PutUint32(attr[0:], 0xffffffff) // ns
	binary.LittleEndian.PutUint32(attr[4:], attrNameIdx)
	binary.LittleEndian.PutUint32(attr[8:], attrValueIdx) // rawValue
	attr[15] = byte(typeString)
	binary.LittleEndian.PutUint32(attr[16:], attrValueIdx) // data
	b = append(b, attr...)
	return b
}

func buildEndElement(nameIdx uint32) []byte {
	const size = 16 + 8
	b := nodeHeader(chunkXMLEndElem, size)
	ext := make([]byte, 8)
	binary.LittleEndian.PutUint32(ext[0:], 0xffffffff)
	binary.LittleEndian.PutUint32(ext[4:], nameIdx)
	return append(b, ext...)
}

func wrapXMLChunk(body []byte) []byte {
	hdr := make([]byte, 8)
	binary.LittleEndian.PutUint16(hdr[0:], chunkXML)
	binary.LittleEndian.PutUint16(hdr[2:], 8)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(8+len(body)))
	return append(hdr, body...)
}

func TestParseXMLMinimalManifest(t *testing.T) {
	// string pool: [0]="manifest" [1]="package" [2]="com.example.app"
	pool := buildUTF8StringPool([]string{"manifest", "package", "com.example.app"})
	start := buildStartElement(0, 1, 2)
	end := buildEndElement(0)

	var body []byte
	body = append(body, pool...)
	body = append(body, start...)
	body = append(body, end...)
	data := wrapXMLChunk(body)

	doc, err := ParseXML(data)
	if err != nil {
		t.Fatalf("ParseXML failed: %v", err)
	}
	if len(doc.Pool) != 3 || doc.Pool[0] != "manifest" {
		t.Fatalf("unexpected pool: %v", doc.Pool)
	}
	if len(doc.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(doc.Events))
	}
	start0 := doc.Events[0]
	if start0.Kind != EventStartElement || start0.Name != "manifest" {
		t.Fatalf("unexpected start event: %+v", start0)
	}
	if len(start0.Attrs) != 1 || start0.Attrs[0].Name != "package" {
		t.Fatalf("unexpected attrs: %+v", start0.Attrs)
	}
	if start0.Attrs[0].Value.StringVal != "com.example.app" {
		t.Errorf("attribute value = %q, want com.example.app", start0.Attrs[0].Value.StringVal)
	}
}

func TestManifestPackage(t *testing.T) {
	pool := buildUTF8StringPool([]string{"manifest", "package", "com.example.app"})
	start := buildStartElement(0, 1, 2)
	end := buildEndElement(0)
	var body []byte
	body = append(body, pool...)
	body = append(body, start...)
	body = append(body, end...)
	data := wrapXMLChunk(body)

	m, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("ParseManifest failed: %v", err)
	}
	pkg, ok := m.Package()
	if !ok || pkg != "com.example.app" {
		t.Errorf("Package() = (%q, %v), want (com.example.app, true)", pkg, ok)
	}
}
