// Package mcp implements the Model Context Protocol (MCP) server for doccorpus.
//
// The MCP server exposes the documentation corpus to AI coding assistants:
//   - build_corpus: Merge the stored fragments and snapshot the canonical corpus
//   - get_symbol: Full merged description of one symbol
//   - list_symbols: Symbols of the last build by qualified name prefix
//   - get_index: The namespace index tree below a symbol
//   - get_status: Stored fragments and the last build
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	doccorpus serve --config doccorpus.yaml
//
// Fragments are loaded into the database beforehand with doccorpus ingest.
//
// # Tool: build_corpus
//
//	Request:
//	{
//	  "name": "build_corpus",
//	  "arguments": {"strict": true, "workers": 8}
//	}
//
//	Response:
//	{
//	  "built": true,
//	  "groups": 1204,
//	  "fragments": 9310,
//	  "symbols": 1204,
//	  "groups_failed": 0,
//	  "duration_ms": 412
//	}
//
// Only one build runs at a time; a second call while a build is running
// fails with ErrorCodeBuildInProgress.
//
// # Tool: get_symbol
//
//	Request:
//	{
//	  "name": "get_symbol",
//	  "arguments": {"id": "0a00000000000000000000000000000000000000"}
//	}
//
// When no corpus is loaded in this process the summary row of the last
// snapshot is returned instead of the full description.
//
// # Tool: list_symbols
//
//	Request:
//	{
//	  "name": "list_symbols",
//	  "arguments": {"prefix": "ns1::", "limit": 20}
//	}
//
// # Tool: get_index
//
//	Request:
//	{
//	  "name": "get_index",
//	  "arguments": {"depth": 2}
//	}
//
// # Error Codes
//
//	-32602  Invalid params
//	-32603  Internal error
//	-32001  Symbol not found
//	-32002  Build in progress
//	-32003  No corpus built
//	-32004  Build failed
package mcp
