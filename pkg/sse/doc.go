// Package sse incrementally parses the SSE (Server-Sent Events) wire format
// from a stream of byte chunks, tolerating chunk boundaries that fall inside
// multi-byte characters, field names, or line terminators.
//
// The package is layered. Feed and Parse recognize grammar-level events
// (ordered comment and field lines delimited by a blank line) out of UTF-8
// text and hand back the unconsumed tail for the caller to retry once more
// input arrives. RawStream drives that parser from an io.Reader through an
// incremental UTF-8 decoder. Stream layers the processing-model field
// semantics on top, producing assembled Events. TeeReader additionally
// forwards the raw bytes verbatim to a destination writer while parsing.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse
