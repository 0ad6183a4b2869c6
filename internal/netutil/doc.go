// Package netutil provides the outbound HTTP primitives shared by all
// vendor adapters: an IPv4-only hardened transport, a JSON round-trip that
// always reads the full body, and a redirect-following binary downloader.
package netutil
