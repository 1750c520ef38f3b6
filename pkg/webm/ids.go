package webm

// EBML element IDs used by the WebM subset this package reads and writes.
// IDs are stored with their length marker included, as they appear on the
// wire.
const (
	// EBML header
	IDEBML               = 0x1A45DFA3
	IDEBMLVersion        = 0x4286
	IDEBMLReadVersion    = 0x42F7
	IDEBMLMaxIDLength    = 0x42F2
	IDEBMLMaxSizeLength  = 0x42F3
	IDDocType            = 0x4282
	IDDocTypeVersion     = 0x4287
	IDDocTypeReadVersion = 0x4285

	// Segment and segment information
	IDSegment       = 0x18538067
	IDInfo          = 0x1549A966
	IDTimecodeScale = 0x2AD7B1
	IDDuration      = 0x4489
	IDMuxingApp     = 0x4D80
	IDWritingApp    = 0x5741

	// Tracks
	IDTracks             = 0x1654AE6B
	IDTrackEntry         = 0xAE
	IDTrackNumber        = 0xD7
	IDTrackUID           = 0x73C5
	IDTrackType          = 0x83
	IDFlagLacing         = 0x9C
	IDLanguage           = 0x22B59C
	IDCodecID            = 0x86
	IDMaxBlockAdditionID = 0x55EE
	IDVideo              = 0xE0
	IDPixelWidth         = 0xB0
	IDPixelHeight        = 0xBA
	IDAlphaMode          = 0x53C0

	// Clusters and blocks
	IDCluster         = 0x1F43B675
	IDTimecode        = 0xE7
	IDSimpleBlock     = 0xA3
	IDBlockGroup      = 0xA0
	IDBlock           = 0xA1
	IDBlockAdditions  = 0x75A1
	IDBlockMore       = 0xA6
	IDBlockAddID      = 0xEE
	IDBlockAdditional = 0xA5
	IDReferenceBlock  = 0xFB

	// Elements recognized but never written
	IDSeekHead = 0x114D9B74
	IDCues     = 0x1C53BB6B
	IDVoid     = 0xEC
	IDTags     = 0x1254C367
)

// containerIDs lists the elements whose content is a sequence of child
// elements rather than an opaque payload.
var containerIDs = map[uint32]bool{
	IDEBML:           true,
	IDSegment:        true,
	IDInfo:           true,
	IDTracks:         true,
	IDTrackEntry:     true,
	IDVideo:          true,
	IDCluster:        true,
	IDBlockGroup:     true,
	IDBlockAdditions: true,
	IDBlockMore:      true,
}
