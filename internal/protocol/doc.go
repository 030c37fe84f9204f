// Package protocol implements the Sphero binary wire protocol engine.
//
// This package handles encoding and checksumming of outbound commands,
// reassembly of inbound packets from a fragmenting byte stream, correlation
// of synchronous responses with the requests that caused them, and splitting
// of streamed sensor packets into per-group fields.
//
// # Packet Format
//
// Outbound commands:
//
//	FF  SOP2  DID  CID  SEQ  DLEN  DATA...  CHK
//
// Inbound packets share a 5-byte header:
//
//	FF  FF  MRSP  SEQ  DLEN  DATA...  CHK   (synchronous response)
//	FF  FE  TYPE  TAG  DLEN  DATA...  CHK   (asynchronous message)
//
// DLEN counts the payload plus the checksum byte, so a packet is DLEN+5
// bytes long. The checksum is the inverted low byte of the sum of every byte
// from offset 2 up to, but not including, the checksum itself.
//
// # Components
//
//   - Checksum, Encode, Verify: the pure codec
//   - Framer: length-prefixed reassembly of transport chunks
//   - Correlator: sequence-number keyed request/response matching
//   - Demux: slicing of async sensor payloads by an ordered field list
//
// # Usage Example
//
//	framer := protocol.NewFramer()
//	corr := protocol.NewCorrelator()
//
//	w, err := corr.Register(seq)
//	if err != nil {
//	    return err
//	}
//	pkt, _ := protocol.Encode(protocol.SOP2Sync, 0x00, 0x01, seq, nil)
//	transport.Write(pkt)
//
//	// on the delivery path
//	for _, p := range framer.Feed(chunk) {
//	    if p.Class() == protocol.ClassSync {
//	        corr.Resolve(p)
//	    }
//	}
//
//	resp, err := corr.Await(ctx, w, time.Second)
//
// # Errors
//
// Errors carry an ErrorKind and match the package sentinels with errors.Is:
//
//	if errors.Is(err, protocol.ErrTimeout) {
//	    // no response arrived
//	}
package protocol
