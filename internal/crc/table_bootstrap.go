//go:build crcbootstrap

package crc

// ieeeTable is built at init under the crcbootstrap tag, which only the
// table generator uses.
var ieeeTable = *MakeTable(Polynomial)
