package firehose

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/pkg/errors"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/action"
)

// Command is one outbound command element with its attributes in wire order.
type Command struct {
	Name  string
	Attrs []xml.Attr
}

// Get returns the value of the named attribute.
func (c *Command) Get(name string) (string, bool) {
	for _, a := range c.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (c *Command) set(name, value string) *Command {
	c.Attrs = append(c.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return c
}

func (c *Command) setInt(name string, v int64) *Command {
	return c.set(name, strconv.FormatInt(v, 10))
}

func (c *Command) setUint(name string, v uint) *Command {
	return c.set(name, strconv.FormatUint(uint64(v), 10))
}

func (c *Command) setBool(name string, v bool) *Command {
	if v {
		return c.set(name, "1")
	}
	return c.set(name, "0")
}

// Encode serializes the command as a complete document.
func (c *Command) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	data := xml.StartElement{Name: xml.Name{Local: "data"}}
	cmd := xml.StartElement{Name: xml.Name{Local: c.Name}, Attr: c.Attrs}
	for _, tok := range []xml.Token{data, cmd, cmd.End(), data.End()} {
		if err := enc.EncodeToken(tok); err != nil {
			return nil, errors.Wrapf(err, "encode %s", c.Name)
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, errors.Wrapf(err, "encode %s", c.Name)
	}
	return buf.Bytes(), nil
}

// ParseCommand decodes a command document produced by Encode.
func ParseCommand(doc []byte) (*Command, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var depth int
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, qdl.Protocolf("parse command", "no command element: %v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if depth == 0 {
			if se.Name.Local != "data" {
				return nil, qdl.Protocolf("parse command", "unexpected root <%s>", se.Name.Local)
			}
			depth++
			continue
		}

		cmd := &Command{Name: se.Name.Local}
		for _, a := range se.Attr {
			cmd.set(a.Name.Local, a.Value)
		}
		return cmd, nil
	}
}

// BuildConfigure creates the session configure command.
//
// Attribute order: MemoryName, MaxPayloadSizeToTargetInBytes, verbose,
// ZLPAwareHost, SkipStorageInit.
func BuildConfigure(storage string, maxPayload int, skipStorageInit bool) *Command {
	c := &Command{Name: CmdConfigure}
	return c.set("MemoryName", storage).
		setInt("MaxPayloadSizeToTargetInBytes", int64(maxPayload)).
		set("verbose", "0").
		set("ZLPAwareHost", "1").
		setBool("SkipStorageInit", skipStorageInit)
}

// BuildProgram creates a program command announcing sectors sectors of
// raw payload.
func BuildProgram(p *action.Program, sectors int64) *Command {
	c := &Command{Name: CmdProgram}
	c.setInt("SECTOR_SIZE_IN_BYTES", int64(p.SectorSize)).
		setInt("num_partition_sectors", sectors).
		setInt("physical_partition_number", int64(p.Partition)).
		set("start_sector", p.StartSector)
	if p.Filename != "" {
		c.set("filename", p.Filename)
	}
	return c
}

// BuildPatch creates a patch command.
func BuildPatch(p *action.Patch) *Command {
	c := &Command{Name: CmdPatch}
	return c.setInt("SECTOR_SIZE_IN_BYTES", int64(p.SectorSize)).
		set("byte_offset", p.ByteOffset).
		set("filename", p.Filename).
		setInt("physical_partition_number", int64(p.Partition)).
		setInt("size_in_bytes", int64(p.SizeInBytes)).
		set("start_sector", p.StartSector).
		set("value", p.Value)
}

// BuildUFSCommon creates the device-wide UFS provisioning command.
func BuildUFSCommon(u action.UFSCommon) *Command {
	c := &Command{Name: CmdUFS}
	return c.setUint("bNumberLU", u.NumberLU).
		setBool("bBootEnable", u.BootEnable).
		setBool("bDescrAccessEn", u.DescrAccessEn).
		setUint("bInitPowerMode", u.InitPowerMode).
		setUint("bHighPriorityLUN", u.HighPriorityLUN).
		setUint("bSecureRemovalType", u.SecureRemovalType).
		setUint("bInitActiveICCLevel", u.InitActiveICCLevel).
		setUint("wPeriodicRTCUpdate", u.PeriodicRTCUpdate).
		setBool("bConfigDescrLock", u.ConfigDescrLock)
}

// BuildUFSBody creates the provisioning command for one logical unit.
func BuildUFSBody(lu action.UFSLogicalUnit) *Command {
	c := &Command{Name: CmdUFS}
	c.setUint("LUNum", lu.LUNum).
		setBool("bLUEnable", lu.Enable).
		setUint("bBootLunID", lu.BootLunID).
		setUint("size_in_kb", lu.SizeInKB).
		setUint("bDataReliability", lu.DataReliability).
		setUint("bLUWriteProtect", lu.WriteProtect).
		setUint("bMemoryType", lu.MemoryType).
		setUint("bLogicalBlockSize", lu.LogicalBlockSize).
		setUint("bProvisioningType", lu.ProvisioningType).
		setUint("wContextCapabilities", lu.ContextCapabilities)
	if lu.Description != "" {
		c.set("desc", lu.Description)
	}
	return c
}

// BuildUFSEpilogue creates the command that ends provisioning. With commit
// set the device makes the layout permanent.
func BuildUFSEpilogue(e action.UFSEpilogue) *Command {
	c := &Command{Name: CmdUFS}
	return c.setUint("LUNtoGrow", e.LUNToGrow).
		setBool("commit", e.Commit)
}

// BuildSetBootable marks a physical partition as the boot drive.
func BuildSetBootable(partition int) *Command {
	c := &Command{Name: CmdSetBootable}
	return c.setInt("value", int64(partition))
}

// BuildPower creates a power command, e.g. PowerReset.
func BuildPower(value string) *Command {
	c := &Command{Name: CmdPower}
	return c.set("value", value)
}
