// Package bitcode reads and writes symbol fragments.
//
// A fragment is the signature "DOCS" followed by a MessagePack stream of
// entries. Entries nest into blocks:
//
//	[1, blockID]                    enter a sub-block
//	[3, recordID, [fields...], blob] record
//	[0]                             end the current block
//
// Every fragment opens with a version block holding the Version record, and
// then holds any number of top-level symbol blocks (namespace, record,
// function, typedef, enum, variable). The vocabulary is closed: a record or
// block id that the enclosing block does not expect fails the whole
// fragment with types.ErrMalformedStream.
//
// Decoding:
//
//	infos, err := bitcode.ReadInfos(data)
//
// Encoding, as done by the extractor:
//
//	data, err := bitcode.Serialize(info)
package bitcode
