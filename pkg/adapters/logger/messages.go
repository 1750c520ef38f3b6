package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Starting conversion":           "変換を開始します",
		"Output saved to %s (%d bytes)": "出力を %s に保存しました (%d バイト)",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",
		"Decoded %d frames from %s":     "%d フレームをデコードしました (%s)",
		"Generated %d synthetic frames": "合成フレームを %d 枚生成しました",
		"stickerpress version %s":       "stickerpress バージョン %s",

		// Search
		"Searching %d candidate configs for %d frames within %d bytes": "候補設定 %d 件を探索中 (%d フレーム, 予算 %d バイト)",
		"Fit found: %s, %d bytes after %d candidates":                  "適合を発見: %s, %d バイト (候補 %d 件)",
		"Budget not met, returning smallest candidate: %s, %d bytes":   "予算内に収まりませんでした。最小候補を返します: %s, %d バイト",
		"Candidate %s: %d bytes (budget %d)":                           "候補 %s: %d バイト (予算 %d)",
		"Candidate %s failed: %s":                                      "候補 %s が失敗しました: %s",
		"Overshoot %.1fx, skipping %d configs":                         "超過 %.1f 倍のため %d 設定をスキップ",

		// Encode stage
		"Encoding %d frames at %dx%d (%s)": "%d フレームを %dx%d でエンコード中 (%s)",

		// Warnings
		"Best effort only: %d bytes exceeds the %d byte budget": "ベストエフォート: %d バイトは予算 %d バイトを超えています",
		"Failed to save candidate: %s":                          "候補の保存に失敗しました: %s",
		"Failed to save search report: %s":                      "探索レポートの保存に失敗しました: %s",

		// Errors
		"Invalid frame sequence: %s": "フレーム列が不正です: %s",
		"Search failed: %s":          "探索に失敗しました: %s",
		"Failed to write output: %s": "出力の書き込みに失敗しました: %s",
	})
}
