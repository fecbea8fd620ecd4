// Package shoutcast reads the now-playing title out of ICY/SHOUTcast streams.
//
// It started as a fork of github.com/romantomjak/shoutcast and keeps its
// stream opening and playlist handling, reworked for one-shot lookups:
//   - Playlist resolution: .pls and .m3u URLs are resolved to the actual stream URL
//   - In-band metadata: the first few metadata blocks are decoded and the StreamTitle extracted
//   - SHOUTcast v1 servers answering "ICY 200 OK" are accepted by the transport
//   - Legacy code pages in metadata blocks are decoded through golang.org/x/text
package shoutcast
