// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package resources

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	reManifest    = regexp.MustCompile(`^manifest$`)
	reApplication = regexp.MustCompile(`^application$`)
	reUsesSDK     = regexp.MustCompile(`^uses-sdk`)
	reUsesPerm    = regexp.MustCompile(`^uses-permission`)
	reUsesFeature = regexp.MustCompile(`^uses-feature`)
	reActivity    = regexp.MustCompile(`^activity(-alias)?$`)
	reService     = regexp.MustCompile(`^service$`)
	reReceiver    = regexp.MustCompile(`^receiver$`)
	reProvider    = regexp.MustCompile(`^provider$`)
)

// Manifest is a read-only wrapper around a parsed AndroidManifest.xml.
// Mutation (add/remove permission, insert network-security-config, ...) is
// out of scope; this package only reads and resolves.
type Manifest struct {
	doc   *Doc
	table *Table
}

// ParseManifest parses a binary AndroidManifest.xml.
func ParseManifest(data []byte) (*Manifest, error) {
	doc, err := ParseXML(data)
	if err != nil {
		return nil, err
	}
	return &Manifest{doc: doc}, nil
}

// WithTable attaches an APK's resources.arsc table, so attribute values
// that were written as a `@type/name` reference rather than a literal
// (AllowBackup, NetworkSecurityConfig, ... sourced from values.xml) resolve
// to their actual default-configuration value instead of stopping at the
// bare resource ID.
func (m *Manifest) WithTable(t *Table) *Manifest {
	m.table = t
	return m
}

// resolve follows one level of Reference/Attribute indirection against the
// attached table, if any. A value that isn't a reference, or that the
// table can't resolve, is returned unchanged.
func (m *Manifest) resolve(v Value) Value {
	if m.table == nil || (v.Kind != ValueReference && v.Kind != ValueAttribute) {
		return v
	}
	if resolved, ok := m.table.Resolve(v.Raw); ok {
		return resolved
	}
	return v
}

func (m *Manifest) rootAttr(name string) (Attribute, bool) {
	attrs := NewSelection(m.doc).Root(reManifest).Attrs(name)
	if len(attrs) != 1 {
		return Attribute{}, false
	}
	attrs[0].Value = m.resolve(attrs[0].Value)
	return attrs[0], true
}

// Package returns the manifest's `package` attribute.
func (m *Manifest) Package() (string, bool) {
	a, ok := m.rootAttr("package")
	if !ok || a.Value.Kind != ValueString {
		return "", false
	}
	return a.Value.StringVal, true
}

// CompileSdkVersion returns the manifest's `compileSdkVersion` attribute.
func (m *Manifest) CompileSdkVersion() (uint32, bool) {
	a, ok := m.rootAttr("compileSdkVersion")
	if !ok || (a.Value.Kind != ValueIntDec && a.Value.Kind != ValueIntHex) {
		return 0, false
	}
	return a.Value.Raw, true
}

// VersionCode returns the manifest's `versionCode` attribute.
func (m *Manifest) VersionCode() (uint32, bool) {
	a, ok := m.rootAttr("versionCode")
	if !ok || (a.Value.Kind != ValueIntDec && a.Value.Kind != ValueIntHex) {
		return 0, false
	}
	return a.Value.Raw, true
}

// VersionName returns the manifest's `versionName` attribute.
func (m *Manifest) VersionName() (string, bool) {
	a, ok := m.rootAttr("versionName")
	if !ok || a.Value.Kind != ValueString {
		return "", false
	}
	return a.Value.StringVal, true
}

func (m *Manifest) applicationBoolAttr(name string, def bool) bool {
	attrs := NewSelection(m.doc).Root(reManifest).Root(reApplication).Attrs(name)
	if len(attrs) != 1 {
		return def
	}
	v := m.resolve(attrs[0].Value)
	if v.Kind != ValueIntBoolean {
		return def
	}
	return v.BoolVal
}

// AllowBackup returns the `application@allowBackup` flag (defaults true,
// matching the Android platform default).
func (m *Manifest) AllowBackup() bool { return m.applicationBoolAttr("allowBackup", true) }

// Debuggable returns the `application@debuggable` flag (defaults false).
func (m *Manifest) Debuggable() bool { return m.applicationBoolAttr("debuggable", false) }

// UsesCleartextTraffic returns the `application@usesCleartextTraffic` flag.
// The platform default changed across SDK levels (the absent value should
// really be resolved against targetSdkVersion); absent an attached table or
// an explicit attribute, the value reported here is the pre-P default
// (true).
func (m *Manifest) UsesCleartextTraffic() bool {
	return m.applicationBoolAttr("usesCleartextTraffic", true)
}

// NetworkSecurityConfig returns the `application@networkSecurityConfig`
// attribute's resolved string. A `@xml/...` reference only resolves to a
// concrete string when a table is attached via WithTable; otherwise this
// falls back to the attribute's raw pool string, if any.
func (m *Manifest) NetworkSecurityConfig() (string, bool) {
	attrs := NewSelection(m.doc).Root(reManifest).Root(reApplication).Attrs("networkSecurityConfig")
	if len(attrs) != 1 {
		return "", false
	}
	v := m.resolve(attrs[0].Value)
	if v.Kind == ValueString {
		return v.StringVal, true
	}
	return attrs[0].RawValue, attrs[0].RawValue != ""
}

// SDKVersions holds the resolved `uses-sdk` tag, following the Android
// platform's own defaults (minSdkVersion defaults to 1; target/max are
// unset when absent).
type SDKVersions struct {
	Min         uint32
	Target      uint32
	HasTarget   bool
	Max         uint32
	HasMax      bool
}

// UsesSDK returns the manifest's `uses-sdk` declaration.
func (m *Manifest) UsesSDK() SDKVersions {
	v := SDKVersions{Min: 1}
	nodes := NewSelection(m.doc).Root(reManifest).Root(reUsesSDK).Nodes()
	if len(nodes) == 0 {
		return v
	}
	for _, a := range nodes[0].Attrs {
		val := m.resolve(a.Value)
		switch a.Name {
		case "minSdkVersion":
			if val.Kind == ValueIntDec || val.Kind == ValueIntHex {
				v.Min = val.Raw
			}
		case "targetSdkVersion":
			if val.Kind == ValueIntDec || val.Kind == ValueIntHex {
				v.Target, v.HasTarget = val.Raw, true
			}
		case "maxSdkVersion":
			if val.Kind == ValueIntDec || val.Kind == ValueIntHex {
				v.Max, v.HasMax = val.Raw, true
			}
		}
	}
	return v
}

// AtLeastTargetSDK compares the manifest's targetSdkVersion against want
// using SDK integer ordering (Android SDK levels are monotonically
// increasing small integers, not dotted version strings, so plain integer
// comparison is correct here — golang.org/x/mod/semver is used only by
// CompareVersionName, for dotted `versionName` strings).
func (v SDKVersions) AtLeastTargetSDK(want uint32) bool {
	return v.HasTarget && v.Target >= want
}

// UsesPermission is one `uses-permission` declaration.
type UsesPermission struct {
	Name string
}

// UsesPermissions returns every declared permission name (also matches
// `uses-permission-sdk-23`, mirroring the original's regex).
func (m *Manifest) UsesPermissions() []UsesPermission {
	var out []UsesPermission
	for _, n := range NewSelection(m.doc).Root(reManifest).Root(reUsesPerm).Nodes() {
		for _, a := range n.Attrs {
			val := m.resolve(a.Value)
			if a.Name == "name" && val.Kind == ValueString {
				out = append(out, UsesPermission{Name: val.StringVal})
			}
		}
	}
	return out
}

// UsesFeature is one `uses-feature` declaration.
type UsesFeature struct {
	Name     string
	Required bool
}

// UsesFeatures returns every declared hardware/software feature.
func (m *Manifest) UsesFeatures() []UsesFeature {
	var out []UsesFeature
	for _, n := range NewSelection(m.doc).Root(reManifest).Root(reUsesFeature).Nodes() {
		f := UsesFeature{Required: true}
		for _, a := range n.Attrs {
			val := m.resolve(a.Value)
			switch {
			case a.Name == "name" && val.Kind == ValueString:
				f.Name = val.StringVal
			case a.Name == "required" && val.Kind == ValueIntBoolean:
				f.Required = val.BoolVal
			}
		}
		out = append(out, f)
	}
	return out
}

// Component is one declared application component (activity, service,
// receiver, or provider).
type Component struct {
	Name     string
	Enabled  bool
	Exported bool
}

func (m *Manifest) components(re *regexp.Regexp) []Component {
	var out []Component
	for _, n := range NewSelection(m.doc).Root(reManifest).Root(reApplication).Root(re).Nodes() {
		c := Component{Enabled: true}
		for _, a := range n.Attrs {
			val := m.resolve(a.Value)
			switch {
			case a.Name == "name" && val.Kind == ValueString:
				c.Name = val.StringVal
			case a.Name == "enabled" && val.Kind == ValueIntBoolean:
				c.Enabled = val.BoolVal
			case a.Name == "exported" && val.Kind == ValueIntBoolean:
				c.Exported = val.BoolVal
			}
		}
		out = append(out, c)
	}
	return out
}

// Activities returns every declared `activity`/`activity-alias`.
func (m *Manifest) Activities() []Component { return m.components(reActivity) }

// Services returns every declared `service`.
func (m *Manifest) Services() []Component { return m.components(reService) }

// Receivers returns every declared `receiver`.
func (m *Manifest) Receivers() []Component { return m.components(reReceiver) }

// Providers returns every declared `provider`.
func (m *Manifest) Providers() []Component { return m.components(reProvider) }

// CompareVersionName compares this manifest's `versionName` against other
// using dotted-version ordering (`versionName` is a free-form string on
// Android, but almost universally a `MAJOR.MINOR.PATCH`-style value).
// Returns 0 if either string is not a comparable dotted version. This is
// the one place in this domain that compares dotted version numbers rather
// than the monotonic-integer SDK levels `UsesSDK` already handles natively.
func (m *Manifest) CompareVersionName(other string) int {
	name, ok := m.VersionName()
	if !ok {
		return 0
	}
	a, b := canonicalSemver(name), canonicalSemver(other)
	if !semver.IsValid(a) || !semver.IsValid(b) {
		return 0
	}
	return semver.Compare(a, b)
}

func canonicalSemver(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
