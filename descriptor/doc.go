// Package descriptor reads the XML files that describe a flashing job and
// turns them into actions.
//
// Four descriptor types are recognized by their root element:
//
//	<patches><patch .../></patches>      patch descriptor
//	<data><program .../></data>          program descriptor
//	<data><ufs .../></data>              UFS provisioning descriptor
//	<contents>...</contents>             contents descriptor (not supported)
//
// Load parses several descriptors at once and keeps their actions in the
// order the files were given. Every failure is returned as a
// *qdl.ConfigError naming the file, before any device is touched.
package descriptor
