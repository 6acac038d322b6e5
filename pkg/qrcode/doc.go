// Package qrcode renders QR codes as PNG bytes or base64 data URIs.
//
// Codes use Medium error correction (about 15% recoverable), which comfortably
// fits an otpauth:// provisioning URI at the default 256px size.
//
// # Usage
//
//	pngBytes, err := qrcode.Generate(uri, 256)
//
//	dataURI, err := qrcode.GenerateBase64Image(uri, 0) // 0 selects DefaultSize
//	fmt.Printf(`<img src="%s" alt="Scan with your authenticator app">`, dataURI)
//
// # Renderer
//
// Renderer adapts GenerateBase64Image to the single-method interface the MFA
// service accepts for provisioning images:
//
//	svc, err := mfa.NewService(cfg, store, store, vault, tracker,
//		mfa.WithQRRenderer(qrcode.NewRenderer(320)),
//	)
//
// # Size Recommendations
//
//   - 256px: standard web use, good phone scanning
//   - 512px: printing
//
// Sizes below MinSize are rejected because phone cameras cannot resolve the
// modules of a typical provisioning URI.
package qrcode
