// Package orchestrate drives compression and decompression end to end,
// wiring internal/cfgcompile's compiled header into internal/predict,
// internal/arith, internal/postproc, and internal/container for one
// block per call.
//
// File I/O and the CLI surface live in cmd/zpaqgo, which does not spawn
// external preprocessors (it rejects PCOMP configurations); this package
// only needs an io.Reader/io.Writer and a caller-supplied Preprocessor
// implementation, so it can be exercised without touching the
// filesystem or starting a subprocess.
package orchestrate

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/lookbusy1344/zpaqgo/internal/arith"
	"github.com/lookbusy1344/zpaqgo/internal/cfgcompile"
	"github.com/lookbusy1344/zpaqgo/internal/container"
	"github.com/lookbusy1344/zpaqgo/internal/digest"
	"github.com/lookbusy1344/zpaqgo/internal/postproc"
	"github.com/lookbusy1344/zpaqgo/internal/predict"
	"github.com/lookbusy1344/zpaqgo/internal/zpaql"
)

// ErrVerifyFailed reports that a preprocessor's round-trip digest did
// not match the original file's digest. Compression of that one file is
// skipped; callers should continue with the rest of the batch.
var ErrVerifyFailed = errors.New("orchestrate: preprocessor round-trip verification failed")

// Preprocessor runs a configuration's external transform on raw input
// and reports the transformed bytes. Spawning the actual subprocess and
// any temporary-file choreography belongs to the caller; this package
// only needs the transformed bytes back to verify and encode.
type Preprocessor interface {
	Transform(input []byte) (output []byte, err error)
}

// Input is one file to add to a block.
type Input struct {
	Name    string
	Comment string
	Data    []byte
}

// CompressBlock writes one block containing every input as a segment,
// sharing one live predictor/VM across all of them. checksum selects
// whether each segment gets a digest trailer. pre is consulted only
// when cfg declares a PCOMP program; it may be nil otherwise.
//
// A file whose preprocessor round-trip fails verification is skipped
// (its error is returned wrapping ErrVerifyFailed); remaining files are
// still attempted.
func CompressBlock(w io.Writer, cfg *cfgcompile.Config, inputs []Input, pre Preprocessor, checksum bool) ([]error, error) {
	h := cfg.Header
	z := zpaql.New(h.HCOMP, int(h.HH), int(h.HM))
	pr, err := predict.New(h, z)
	if err != nil {
		return nil, fmt.Errorf("orchestrate: building predictor: %w", err)
	}

	bw, err := container.NewBlockWriter(w, h)
	if err != nil {
		return nil, fmt.Errorf("orchestrate: opening block: %w", err)
	}

	// One encoder for the whole block: its low/high window flows
	// continuously across segment boundaries with no reset.
	bufw := bufio.NewWriter(bw.Writer())
	enc := arith.NewEncoder(bufw, pr)

	var skipped []error
	first := true
	for _, in := range inputs {
		payload := in.Data
		if h.PCOMP != nil {
			verified, err := verifyPreprocess(h, in.Data, pre)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("%s: %w", in.Name, err))
				continue
			}
			payload = verified
		}
		if err := compressSegment(bw, enc, bufw, h, in, payload, first, checksum); err != nil {
			return skipped, fmt.Errorf("orchestrate: segment %q: %w", in.Name, err)
		}
		first = false
	}
	if err := bw.Close(); err != nil {
		return skipped, fmt.Errorf("orchestrate: closing block: %w", err)
	}
	return skipped, nil
}

// verifyPreprocess runs pre over data, then replays the result through a
// fresh PCOMP VM and compares its digest against data's own digest. It
// returns the preprocessor's raw output, which is what gets compressed;
// the PCOMP program reverses it again during decompression.
func verifyPreprocess(h *predict.Header, data []byte, pre Preprocessor) ([]byte, error) {
	if pre == nil {
		return nil, errors.New("orchestrate: configuration declares PCOMP but no preprocessor was supplied")
	}
	transformed, err := pre.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("running preprocessor: %w", err)
	}

	want := digest.New()
	if _, err := want.Write(data); err != nil {
		return nil, err
	}

	var got bytesDigestSink
	got.hash = digest.New()
	vm := zpaql.New(h.PCOMP, int(h.PH), int(h.PM))
	vm.Out = &got
	for _, b := range transformed {
		if err := vm.Run(uint32(b)); err != nil {
			return nil, fmt.Errorf("running verification PCOMP: %w", err)
		}
	}
	eofSentinel := int32(-1)
	if err := vm.Run(uint32(eofSentinel)); err != nil {
		return nil, fmt.Errorf("running verification PCOMP at EOF: %w", err)
	}

	if want.Sum() != got.hash.Sum() {
		return nil, ErrVerifyFailed
	}
	return transformed, nil
}

// bytesDigestSink adapts zpaql.Machine's byte-at-a-time OUT sink to a
// running digest, used only to recompute the pre-transform digest from
// the PCOMP VM's reversed output during verification.
type bytesDigestSink struct{ hash *digest.Hash }

func (s *bytesDigestSink) WriteByte(b byte) error {
	return s.hash.WriteByte(b)
}

func compressSegment(bw *container.BlockWriter, enc *arith.Encoder, bufw *bufio.Writer, h *predict.Header, in Input, payload []byte, first bool, checksum bool) error {
	if _, err := bw.StartSegment(in.Name, in.Comment); err != nil {
		return err
	}

	if first {
		if h.PCOMP == nil {
			if err := enc.EncodeByte(0); err != nil {
				return err
			}
		} else {
			if err := enc.EncodeByte(1); err != nil {
				return err
			}
			// The transmitted length and bytes include the trailing 0
			// terminator compileBlock appended.
			size := len(h.PCOMP)
			if err := enc.EncodeByte(byte(size)); err != nil {
				return err
			}
			if err := enc.EncodeByte(byte(size >> 8)); err != nil {
				return err
			}
			for _, b := range h.PCOMP {
				if err := enc.EncodeByte(b); err != nil {
					return err
				}
			}
		}
	}

	for _, b := range payload {
		if err := enc.EncodeByte(b); err != nil {
			return err
		}
	}
	if err := enc.EncodeEOF(); err != nil {
		return err
	}
	if err := bufw.Flush(); err != nil {
		return err
	}

	// The trailer digest covers the original bytes, not the
	// preprocessed payload: the extractor compares it against its
	// post-processed output.
	var sum *[digest.Size]byte
	if checksum {
		h := digest.New()
		if _, err := h.Write(in.Data); err != nil {
			return err
		}
		s := h.Sum()
		sum = &s
	}
	return bw.FinishSegment(sum)
}

// SegmentHandler receives one decompressed segment's output. Write is
// called once per post-processed byte; Done is called once decoding and
// post-processing for this segment have finished, with the digest the
// archive recorded (nil if the segment had none) and the digest actually
// computed over the emitted bytes. A mismatch is the caller's to report;
// extraction of later segments continues.
type SegmentHandler interface {
	io.ByteWriter
	Done(name, comment string, want, got *[digest.Size]byte) error
}

// DecompressArchive reads every block from r starting at the current
// position, which must already sit exactly at a "zPQ" magic (the normal
// shape: archives omit the locator tag unless they are meant to be
// found while embedded in unrelated data). It decodes every segment of
// every block and feeds post-processed bytes to a SegmentHandler the
// caller's next func returns for that segment's name/comment.
func DecompressArchive(r *bufio.Reader, next func(name, comment string) (SegmentHandler, error)) error {
	return decompressLoop(r, container.OpenBlock, next)
}

// DecompressEmbeddedArchive is DecompressArchive for an archive that may
// be preceded by unrelated bytes and a locator tag. It scans for the
// locator tag before each block instead of requiring r to already be
// positioned at one.
func DecompressEmbeddedArchive(r *bufio.Reader, next func(name, comment string) (SegmentHandler, error)) error {
	return decompressLoop(r, container.FindNextBlock, next)
}

func decompressLoop(r *bufio.Reader, open func(*bufio.Reader) (*container.BlockReader, error), next func(name, comment string) (SegmentHandler, error)) error {
	for {
		br, err := open(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := decompressBlock(br, next); err != nil {
			return err
		}
	}
}

func decompressBlock(br *container.BlockReader, next func(name, comment string) (SegmentHandler, error)) error {
	h := br.Header
	z := zpaql.New(h.HCOMP, int(h.HH), int(h.HM))
	pr, err := predict.New(h, z)
	if err != nil {
		return fmt.Errorf("orchestrate: building predictor: %w", err)
	}
	// One post-processor for the whole block: only the first segment's
	// payload carries a PASS/PROG selector byte and, for PROG, the
	// program body; later segments resume in whatever mode and PCOMP
	// state the first one established, so the same Processor is reused
	// with a fresh output/digest sink per segment instead of being
	// rebuilt.
	pp := postproc.New(h.PH, h.PM, nil, nil)
	// One decoder for the whole block: its low/high/curr window flows
	// continuously across segment boundaries (see internal/arith's
	// curr==0 refill).
	dec := arith.NewDecoder(br.Payload(), pr)

	for {
		name, comment, ok, err := br.NextSegment()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		handler, err := next(name, comment)
		if err != nil {
			return fmt.Errorf("orchestrate: segment %q: %w", name, err)
		}
		got, err := decodeSegment(dec, pp, handler)
		if err != nil {
			return fmt.Errorf("orchestrate: segment %q: %w", name, err)
		}
		want, err := br.FinishSegment()
		if err != nil {
			return err
		}
		if err := handler.Done(name, comment, want, got); err != nil {
			return err
		}
	}
}

func decodeSegment(dec *arith.Decoder, pp *postproc.Processor, handler SegmentHandler) (*[digest.Size]byte, error) {
	hash := digest.New()
	pp.SetSink(handler, hash)

	for {
		c, err := dec.DecodeByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if err := pp.Write(-1); err != nil {
					return nil, err
				}
				s := hash.Sum()
				return &s, nil
			}
			return nil, err
		}
		if err := pp.Write(int(c)); err != nil {
			return nil, err
		}
	}
}
