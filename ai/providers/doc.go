// Package providers contains one adapter per external AI vendor. Each
// adapter translates domain requests into the vendor's wire format and
// normalizes vendor responses and error envelopes into the domain shapes.
//
// Vendor error envelopes differ (a bare string, an object with .message,
// or a vendor-specific .code); each vendor file owns a small extract-
// message function so the error classifier only ever sees a uniform
// message string.
package providers
