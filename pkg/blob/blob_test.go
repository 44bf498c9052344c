package blob

import (
	"errors"
	"testing"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/zkerr"
)

func testBlob() BlobV1 {
	return New([]byte("app"), 1, hashing.Hash{1}, hashing.Hash{2}, []byte("pub"), []byte("proof"), hashing.Hash{3})
}

func TestNewSetsSchemaVersion(t *testing.T) {
	b := testBlob()
	if b.Version != SchemaVersion {
		t.Fatalf("Version = %d, want %d", b.Version, SchemaVersion)
	}
}

func TestWithMethodsReturnIndependentCopies(t *testing.T) {
	b := testBlob()
	withOutputs := b.WithPublicOutputs([]byte("outputs"))
	withTS := withOutputs.WithTimestamp(42)
	withSig := withTS.WithSignature([]byte("sig"))

	if b.PublicOutputs != nil || b.Timestamp != nil || b.Signature != nil {
		t.Fatalf("original blob was mutated by With* calls: %+v", b)
	}
	if string(withSig.PublicOutputs) != "outputs" {
		t.Fatalf("PublicOutputs = %q, want outputs", withSig.PublicOutputs)
	}
	if withSig.Timestamp == nil || *withSig.Timestamp != 42 {
		t.Fatalf("Timestamp = %v, want 42", withSig.Timestamp)
	}
	if string(withSig.Signature) != "sig" {
		t.Fatalf("Signature = %q, want sig", withSig.Signature)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := testBlob().WithPublicOutputs([]byte("outputs")).WithTimestamp(100)

	data, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Sequence != b.Sequence || got.PrevRoot != b.PrevRoot || got.NewRoot != b.NewRoot {
		t.Fatalf("decoded blob %+v != original %+v", got, b)
	}
	if got.Timestamp == nil || *got.Timestamp != 100 {
		t.Fatalf("decoded Timestamp = %v, want 100", got.Timestamp)
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	b := testBlob()
	b.Version = 2
	data, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(data)
	if err == nil {
		t.Fatalf("expected an error decoding a blob with an unrecognized version")
	}
	var versionErr *zkerr.InvalidVersionError
	if !errors.As(err, &versionErr) {
		t.Fatalf("error = %v, want *zkerr.InvalidVersionError", err)
	}
	if versionErr.Expected != SchemaVersion || versionErr.Got != 2 {
		t.Fatalf("versionErr = %+v, want Expected=%d Got=2", versionErr, SchemaVersion)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not cbor")); err == nil {
		t.Fatalf("expected an error decoding garbage bytes")
	} else if !errors.Is(err, zkerr.ErrEncoding) {
		t.Fatalf("error = %v, want wrapping zkerr.ErrEncoding", err)
	}
}

func TestHashIsDeterministicAndSensitiveToContent(t *testing.T) {
	b1 := testBlob()
	b2 := testBlob()

	h1, err := b1.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := b2.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("identical blobs produced different hashes")
	}

	b3 := testBlob().WithPublicOutputs([]byte("different"))
	h3, err := b3.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h3 {
		t.Fatalf("blobs with different content produced the same hash")
	}
}

func TestSigningMessageIncludesSequenceAndRoots(t *testing.T) {
	b := testBlob()
	msg, err := b.SigningMessage()
	if err != nil {
		t.Fatalf("SigningMessage: %v", err)
	}
	if len(msg) != 8+32+32+32+32 {
		t.Fatalf("len(SigningMessage()) = %d, want %d", len(msg), 8+32+32+32+32)
	}

	other := testBlob()
	other.Sequence = 2
	otherMsg, err := other.SigningMessage()
	if err != nil {
		t.Fatalf("SigningMessage: %v", err)
	}
	if string(msg) == string(otherMsg) {
		t.Fatalf("signing messages for different sequences must differ")
	}
}
