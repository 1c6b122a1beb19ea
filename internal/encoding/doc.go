// Package encoding wraps the ffmpeg command-line encoder behind the Client
// interface the execution backend consumes. It owns codec selection for the
// supported target formats, duration probing for percentage progress, and
// destination-policy resolution for converted files.
package encoding
