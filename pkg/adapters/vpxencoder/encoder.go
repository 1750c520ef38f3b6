// Package vpxencoder provides a VP9 video encoder using libvpx.
//
// The configuration is pinned for determinism: single-threaded, no
// lagged frames (so no alt-ref frames appear in the output), automatic
// keyframes disabled with a forced keyframe on the first frame. The
// color and alpha streams of one sticker are encoded with identical
// settings, which keeps their sample counts and timestamps aligned.
package vpxencoder

/*
#cgo !windows pkg-config: vpx
#cgo windows CFLAGS: -IC:/vcpkg/installed/x64-windows-static/include
#cgo windows LDFLAGS: -LC:/vcpkg/installed/x64-windows-static/lib -lvpx -static -lpthread
#include <vpx/vpx_encoder.h>
#include <vpx/vp8cx.h>
#include <stdlib.h>
#include <string.h>

static vpx_codec_iface_t* get_vp9_interface() {
    return vpx_codec_vp9_cx();
}

// Wrapper for vpx_codec_enc_init (it's a macro)
static vpx_codec_err_t init_encoder(vpx_codec_ctx_t *ctx, vpx_codec_iface_t *iface,
                                    vpx_codec_enc_cfg_t *cfg, vpx_codec_flags_t flags) {
    return vpx_codec_enc_init_ver(ctx, iface, cfg, flags, VPX_ENCODER_ABI_VERSION);
}

// Helper functions to access packet data
static int is_frame_packet(const vpx_codec_cx_pkt_t *pkt) {
    return pkt->kind == VPX_CODEC_CX_FRAME_PKT;
}

static void* get_frame_buf(const vpx_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.buf;
}

static size_t get_frame_sz(const vpx_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.sz;
}

static int is_keyframe(const vpx_codec_cx_pkt_t *pkt) {
    return (pkt->data.frame.flags & VPX_FRAME_IS_KEY) != 0;
}

static vpx_codec_pts_t get_frame_pts(const vpx_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.pts;
}

// Helper to write YUV plane rows
static void set_plane_row(vpx_image_t *img, int plane, int row, const unsigned char *src, int len) {
    memcpy(img->planes[plane] + row * img->stride[plane], src, len);
}

static void fill_plane(vpx_image_t *img, int plane, int rows, int cols, unsigned char val) {
    int r;
    for (r = 0; r < rows; r++) {
        memset(img->planes[plane] + r * img->stride[plane], val, cols);
    }
}

// Wrappers for vpx_codec_control (it's a variadic macro)
static vpx_codec_err_t set_cq_level(vpx_codec_ctx_t *ctx, int value) {
    return vpx_codec_control(ctx, VP9E_SET_CQ_LEVEL, value);
}

static vpx_codec_err_t set_cpu_used(vpx_codec_ctx_t *ctx, int value) {
    return vpx_codec_control(ctx, VP8E_SET_CPUUSED, value);
}
*/
import "C"

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"unsafe"

	"github.com/user/stickerpress/pkg/ports"
)

const neutralChroma = 128

// Encoder implements ports.VideoEncoder using libvpx for VP9 encoding.
type Encoder struct {
	mu sync.Mutex

	codec    *C.vpx_codec_ctx_t
	cfg      *C.vpx_codec_enc_cfg_t
	rawFrame *C.vpx_image_t

	width   int
	height  int
	options ports.EncoderOptions

	samples    []ports.EncodedSample
	timestamps []int
	frameCount int
}

// New creates a new VP9 encoder.
func New() *Encoder {
	return &Encoder{}
}

// Factory hands out a fresh encoder per stream.
type Factory struct{}

// NewFactory creates a VP9 encoder factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) NewEncoder() ports.VideoEncoder {
	return New()
}

// Begin initializes the encoder.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width < 2 || height < 2 || width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("dimensions must be even and >= 2, got %dx%d", width, height)
	}
	if opts.Quality < 0 || opts.Quality > 63 {
		return fmt.Errorf("quality must be 0-63, got %d", opts.Quality)
	}

	e.width = width
	e.height = height
	e.options = opts
	e.samples = nil
	e.timestamps = nil
	e.frameCount = 0

	e.codec = (*C.vpx_codec_ctx_t)(C.malloc(C.sizeof_vpx_codec_ctx_t))
	if e.codec == nil {
		return fmt.Errorf("failed to allocate codec context")
	}
	C.memset(unsafe.Pointer(e.codec), 0, C.sizeof_vpx_codec_ctx_t)

	e.cfg = (*C.vpx_codec_enc_cfg_t)(C.malloc(C.sizeof_vpx_codec_enc_cfg_t))
	if e.cfg == nil {
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
		return fmt.Errorf("failed to allocate encoder config")
	}

	iface := C.get_vp9_interface()

	if res := C.vpx_codec_enc_config_default(iface, e.cfg, 0); res != C.VPX_CODEC_OK {
		e.cleanup()
		return fmt.Errorf("failed to get default config: %d", res)
	}

	e.cfg.g_w = C.uint(width)
	e.cfg.g_h = C.uint(height)
	// Millisecond timebase so sample PTS maps directly to timestamps.
	e.cfg.g_timebase.num = 1
	e.cfg.g_timebase.den = 1000
	e.cfg.g_error_resilient = 0

	// Determinism: one thread, no lagged frames, no auto keyframes.
	e.cfg.g_threads = 1
	e.cfg.g_lag_in_frames = 0
	e.cfg.g_pass = C.VPX_RC_ONE_PASS
	e.cfg.kf_mode = C.VPX_KF_DISABLED

	// Constant-quality rate control driven purely by the CRF value.
	e.cfg.rc_end_usage = C.VPX_Q
	e.cfg.rc_min_quantizer = 0
	e.cfg.rc_max_quantizer = 63

	if res := C.init_encoder(e.codec, iface, e.cfg, 0); res != C.VPX_CODEC_OK {
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
		C.free(unsafe.Pointer(e.cfg))
		e.cfg = nil
		return fmt.Errorf("failed to initialize encoder: %d", res)
	}

	if res := C.set_cq_level(e.codec, C.int(opts.Quality)); res != C.VPX_CODEC_OK {
		e.cleanup()
		return fmt.Errorf("failed to set cq level: %d", res)
	}
	// Speed 1 keeps quality close to best while staying usable for the
	// candidate sweep.
	C.set_cpu_used(e.codec, 1)

	e.rawFrame = (*C.vpx_image_t)(C.malloc(C.sizeof_vpx_image_t))
	if e.rawFrame == nil {
		e.cleanup()
		return fmt.Errorf("failed to allocate raw frame")
	}

	if C.vpx_img_alloc(e.rawFrame, C.VPX_IMG_FMT_I420, C.uint(width), C.uint(height), 32) == nil {
		C.free(unsafe.Pointer(e.rawFrame))
		e.rawFrame = nil
		e.cleanup()
		return fmt.Errorf("failed to allocate image buffer")
	}

	return nil
}

// EncodeFrame encodes a single frame at the given timestamp. With zero
// lag the encoder emits exactly one packet per input frame, collected
// immediately.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return fmt.Errorf("encoder not initialized")
	}

	switch src := img.(type) {
	case *image.Gray:
		e.grayToYUV420(src)
	case *image.RGBA:
		e.rgbaToYUV420(src)
	default:
		bounds := img.Bounds()
		rgba := image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
		e.rgbaToYUV420(rgba)
	}

	flags := C.vpx_enc_frame_flags_t(0)
	if e.frameCount == 0 {
		flags = C.VPX_EFLAG_FORCE_KF
	}

	res := C.vpx_codec_encode(e.codec, e.rawFrame, C.vpx_codec_pts_t(timestampMs), 1, flags, C.VPX_DL_GOOD_QUALITY)
	if res != C.VPX_CODEC_OK {
		return fmt.Errorf("encoding failed: %d", res)
	}

	e.timestamps = append(e.timestamps, timestampMs)
	e.collectPackets()
	e.frameCount++
	return nil
}

// End flushes the encoder and returns the collected samples in
// presentation order.
func (e *Encoder) End() ([]ports.EncodedSample, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.codec == nil {
		return nil, fmt.Errorf("encoder not initialized")
	}

	res := C.vpx_codec_encode(e.codec, nil, 0, 1, 0, C.VPX_DL_GOOD_QUALITY)
	if res != C.VPX_CODEC_OK {
		return nil, fmt.Errorf("flush failed: %d", res)
	}
	e.collectPackets()

	samples := e.samples
	e.cleanup()

	if len(samples) != e.frameCount {
		return nil, fmt.Errorf("encoder produced %d samples for %d frames", len(samples), e.frameCount)
	}
	return samples, nil
}

func (e *Encoder) collectPackets() {
	var iter C.vpx_codec_iter_t
	for {
		pkt := C.vpx_codec_get_cx_data(e.codec, &iter)
		if pkt == nil {
			break
		}
		if C.is_frame_packet(pkt) == 0 {
			continue
		}

		buf := C.get_frame_buf(pkt)
		sz := C.get_frame_sz(pkt)
		e.samples = append(e.samples, ports.EncodedSample{
			Data:        C.GoBytes(buf, C.int(sz)),
			TimestampMs: int(C.get_frame_pts(pkt)),
			Keyframe:    C.is_keyframe(pkt) != 0,
		})
	}
}

func (e *Encoder) cleanup() {
	if e.rawFrame != nil {
		C.vpx_img_free(e.rawFrame)
		C.free(unsafe.Pointer(e.rawFrame))
		e.rawFrame = nil
	}
	if e.codec != nil {
		C.vpx_codec_destroy(e.codec)
		C.free(unsafe.Pointer(e.codec))
		e.codec = nil
	}
	if e.cfg != nil {
		C.free(unsafe.Pointer(e.cfg))
		e.cfg = nil
	}
}

// rgbaToYUV420 converts an RGBA image to YUV420 in the raw frame buffer.
// Alpha is ignored; the color plane arrives opaque.
func (e *Encoder) rgbaToYUV420(rgba *image.RGBA) {
	width := e.width
	height := e.height

	yRow := make([]byte, width)
	uRow := make([]byte, width/2)
	vRow := make([]byte, width/2)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*rgba.Stride + x*4
			r := int(rgba.Pix[idx])
			g := int(rgba.Pix[idx+1])
			b := int(rgba.Pix[idx+2])

			yRow[x] = clampByte(((66*r + 129*g + 25*b + 128) >> 8) + 16)

			if y%2 == 0 && x%2 == 0 {
				uRow[x/2] = clampByte(((-38*r - 74*g + 112*b + 128) >> 8) + 128)
				vRow[x/2] = clampByte(((112*r - 94*g - 18*b + 128) >> 8) + 128)
			}
		}
		C.set_plane_row(e.rawFrame, 0, C.int(y), (*C.uchar)(unsafe.Pointer(&yRow[0])), C.int(width))
		if y%2 == 0 {
			C.set_plane_row(e.rawFrame, 1, C.int(y/2), (*C.uchar)(unsafe.Pointer(&uRow[0])), C.int(width/2))
			C.set_plane_row(e.rawFrame, 2, C.int(y/2), (*C.uchar)(unsafe.Pointer(&vRow[0])), C.int(width/2))
		}
	}
}

// grayToYUV420 copies a grayscale image straight into the luma plane
// with neutral chroma. Used for the alpha stream.
func (e *Encoder) grayToYUV420(gray *image.Gray) {
	width := e.width
	height := e.height

	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
		C.set_plane_row(e.rawFrame, 0, C.int(y), (*C.uchar)(unsafe.Pointer(&row[0])), C.int(width))
	}
	C.fill_plane(e.rawFrame, 1, C.int(height/2), C.int(width/2), neutralChroma)
	C.fill_plane(e.rawFrame, 2, C.int(height/2), C.int(width/2), neutralChroma)
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// Ensure Encoder implements ports.VideoEncoder
var _ ports.VideoEncoder = (*Encoder)(nil)
var _ ports.VideoEncoderFactory = (*Factory)(nil)
