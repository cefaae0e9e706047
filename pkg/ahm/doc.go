// Package ahm implements the feature codecs for Allen & Heath AHM zone
// mixers controlled over MIDI-over-TCP.
//
// # Channel Layout
//
// The console listens on a base MIDI channel N chosen by the operator.
// Channel types are addressed on consecutive channels:
//
//	Inputs          N
//	Zones           N+1
//	Control groups  N+2
//
// # Messages
//
//	Scene recall   BN 00 Bank, CN Program             (scene = bank*128 + program + 1)
//	Mute           9N CH 7F|3F, 9N CH 00              (7F = muted, 3F = unmuted)
//	Fader level    BN 63 CH, BN 62 17, BN 06 LV       (NRPN)
//	Send mute      F0 <hdr> 0N 03 CH SndN SndCH MU F7
//	Send level     F0 <hdr> 0N 0D CH SndN SndCH LV F7
//	Get mute       F0 <hdr> 0N 01 09 CH F7
//	Get level      F0 <hdr> 0N 01 0B 17 CH F7
//
// where <hdr> is the AHM SysEx header 00 00 1A 50 12 01 00.
//
// Channel-voice messages are built and parsed with gomidi; SysEx frames are
// assembled directly since their payload is AHM specific.
package ahm
