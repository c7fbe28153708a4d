// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package flow defines the fixed-width network-flow record used
// throughout silk. A record is a flat, big-endian byte slab of exactly
// RecSize bytes; accessors in this package provide typed views over the
// slab without copying it. Records own no heap storage and may be moved
// with copy().
package flow

import (
	"encoding/binary"
	"net/netip"
)

// RecSize is the width of a flow record in bytes.
const RecSize = 88

// Record field offsets. All multi-byte fields are big-endian. The three
// address fields are 16 bytes wide; IPv4 addresses are stored
// zero-extended at the high end so that bytewise comparison orders
// mixed-family address sets consistently.
const (
	offSIP         = 0
	offDIP         = 16
	offNhIP        = 32
	offSPort       = 48
	offDPort       = 50
	offProto       = 52
	offFlags       = 53
	offInitFlags   = 54
	offRestFlags   = 55
	offTCPState    = 56
	offFlowType    = 57
	offSensor      = 58
	offInput       = 60
	offOutput      = 62
	offPkts        = 64
	offBytes       = 68
	offSTime       = 72
	offElapsed     = 80
	offApplication = 84
)

// AddrLen is the width of an address field.
const AddrLen = 16

// IP protocol numbers recognized by IsICMP.
const (
	ProtoICMP   = 1
	ProtoICMPv6 = 58
)

// Family selects how address fields are compared.
type Family int

const (
	// FamilyDual compares all 16 address bytes.
	FamilyDual Family = iota
	// FamilyIPv4 compares only the low 4 address bytes.
	FamilyIPv4
)

// SIP returns the source address bytes of rec.
func SIP(rec []byte) []byte { return rec[offSIP : offSIP+AddrLen] }

// DIP returns the destination address bytes of rec.
func DIP(rec []byte) []byte { return rec[offDIP : offDIP+AddrLen] }

// NhIP returns the next-hop address bytes of rec.
func NhIP(rec []byte) []byte { return rec[offNhIP : offNhIP+AddrLen] }

// SetSIP stores addr as the source address of rec.
func SetSIP(rec []byte, addr netip.Addr) { putAddr(SIP(rec), addr) }

// SetDIP stores addr as the destination address of rec.
func SetDIP(rec []byte, addr netip.Addr) { putAddr(DIP(rec), addr) }

// SetNhIP stores addr as the next-hop address of rec.
func SetNhIP(rec []byte, addr netip.Addr) { putAddr(NhIP(rec), addr) }

// SIPAddr returns the source address of rec as a netip.Addr.
func SIPAddr(rec []byte) netip.Addr { return getAddr(SIP(rec)) }

// DIPAddr returns the destination address of rec as a netip.Addr.
func DIPAddr(rec []byte) netip.Addr { return getAddr(DIP(rec)) }

func putAddr(dst []byte, addr netip.Addr) {
	for i := range dst {
		dst[i] = 0
	}
	if addr.Is4() {
		a4 := addr.As4()
		copy(dst[AddrLen-4:], a4[:])
		return
	}
	a16 := addr.As16()
	copy(dst, a16[:])
}

func getAddr(src []byte) netip.Addr {
	for _, b := range src[:AddrLen-4] {
		if b != 0 {
			return netip.AddrFrom16([16]byte(src))
		}
	}
	return netip.AddrFrom4([4]byte(src[AddrLen-4:]))
}

func SPort(rec []byte) uint16         { return binary.BigEndian.Uint16(rec[offSPort:]) }
func SetSPort(rec []byte, v uint16)   { binary.BigEndian.PutUint16(rec[offSPort:], v) }
func DPort(rec []byte) uint16         { return binary.BigEndian.Uint16(rec[offDPort:]) }
func SetDPort(rec []byte, v uint16)   { binary.BigEndian.PutUint16(rec[offDPort:], v) }
func Proto(rec []byte) uint8          { return rec[offProto] }
func SetProto(rec []byte, v uint8)    { rec[offProto] = v }
func Flags(rec []byte) uint8          { return rec[offFlags] }
func SetFlags(rec []byte, v uint8)    { rec[offFlags] = v }
func InitFlags(rec []byte) uint8      { return rec[offInitFlags] }
func SetInitFlags(rec []byte, v uint8) { rec[offInitFlags] = v }
func RestFlags(rec []byte) uint8      { return rec[offRestFlags] }
func SetRestFlags(rec []byte, v uint8) { rec[offRestFlags] = v }
func TCPState(rec []byte) uint8       { return rec[offTCPState] }
func SetTCPState(rec []byte, v uint8) { rec[offTCPState] = v }
func FlowType(rec []byte) uint8       { return rec[offFlowType] }
func SetFlowType(rec []byte, v uint8) { rec[offFlowType] = v }
func Sensor(rec []byte) uint16        { return binary.BigEndian.Uint16(rec[offSensor:]) }
func SetSensor(rec []byte, v uint16)  { binary.BigEndian.PutUint16(rec[offSensor:], v) }
func Input(rec []byte) uint16         { return binary.BigEndian.Uint16(rec[offInput:]) }
func SetInput(rec []byte, v uint16)   { binary.BigEndian.PutUint16(rec[offInput:], v) }
func Output(rec []byte) uint16        { return binary.BigEndian.Uint16(rec[offOutput:]) }
func SetOutput(rec []byte, v uint16)  { binary.BigEndian.PutUint16(rec[offOutput:], v) }
func Pkts(rec []byte) uint32          { return binary.BigEndian.Uint32(rec[offPkts:]) }
func SetPkts(rec []byte, v uint32)    { binary.BigEndian.PutUint32(rec[offPkts:], v) }
func Bytes(rec []byte) uint32         { return binary.BigEndian.Uint32(rec[offBytes:]) }
func SetBytes(rec []byte, v uint32)   { binary.BigEndian.PutUint32(rec[offBytes:], v) }
func STime(rec []byte) uint64         { return binary.BigEndian.Uint64(rec[offSTime:]) }
func SetSTime(rec []byte, v uint64)   { binary.BigEndian.PutUint64(rec[offSTime:], v) }
func Elapsed(rec []byte) uint32       { return binary.BigEndian.Uint32(rec[offElapsed:]) }
func SetElapsed(rec []byte, v uint32) { binary.BigEndian.PutUint32(rec[offElapsed:], v) }

func Application(rec []byte) uint16 { return binary.BigEndian.Uint16(rec[offApplication:]) }
func SetApplication(rec []byte, v uint16) {
	binary.BigEndian.PutUint16(rec[offApplication:], v)
}

// ETime returns the end time of rec in milliseconds since the epoch.
func ETime(rec []byte) uint64 { return STime(rec) + uint64(Elapsed(rec)) }

// IsICMP reports whether rec describes ICMP or ICMPv6 traffic.
func IsICMP(rec []byte) bool {
	p := Proto(rec)
	return p == ProtoICMP || p == ProtoICMPv6
}

// IcmpType returns the ICMP type of rec, or zero when the record is not
// ICMP. The type overlays the high byte of the destination port.
func IcmpType(rec []byte) uint8 {
	if !IsICMP(rec) {
		return 0
	}
	return rec[offDPort]
}

// IcmpCode returns the ICMP code of rec, or zero when the record is not
// ICMP. The code overlays the low byte of the destination port.
func IcmpCode(rec []byte) uint8 {
	if !IsICMP(rec) {
		return 0
	}
	return rec[offDPort+1]
}

// FieldOffset returns the record offset and width of the given
// fixed-width field. It panics on fields without a fixed record region
// (FieldETime, FieldIcmpType, FieldIcmpCode, FieldPlugin).
func FieldOffset(id FieldID) (offset, width int) {
	switch id {
	case FieldSIP:
		return offSIP, AddrLen
	case FieldDIP:
		return offDIP, AddrLen
	case FieldNhIP:
		return offNhIP, AddrLen
	case FieldSPort:
		return offSPort, 2
	case FieldDPort:
		return offDPort, 2
	case FieldProto:
		return offProto, 1
	case FieldFlags:
		return offFlags, 1
	case FieldInitFlags:
		return offInitFlags, 1
	case FieldRestFlags:
		return offRestFlags, 1
	case FieldTCPState:
		return offTCPState, 1
	case FieldFlowType:
		return offFlowType, 1
	case FieldSensor:
		return offSensor, 2
	case FieldInput:
		return offInput, 2
	case FieldOutput:
		return offOutput, 2
	case FieldPkts:
		return offPkts, 4
	case FieldBytes:
		return offBytes, 4
	case FieldSTime:
		return offSTime, 8
	case FieldElapsed:
		return offElapsed, 4
	case FieldApplication:
		return offApplication, 2
	}
	panic("flow: field " + id.String() + " has no fixed record region")
}
