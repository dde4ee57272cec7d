package rpc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameSize は1フレームの最大バイト数。これを超えるフレームは不正として拒否する。
const maxFrameSize = 4 << 20

// request はRPCリクエストのエンベロープ。
type request struct {
	// Method は呼び出すメソッド名（例: "PostService/CreatePost"）。
	Method string `json:"method"`
	// Payload はメソッド固有のリクエストデータ（JSON形式）。
	Payload json.RawMessage `json:"payload,omitempty"`
}

// response はRPCレスポンスのエンベロープ。
type response struct {
	// Code はRPCステータスコード。
	Code Code `json:"code"`
	// Detail はエラー時の詳細メッセージ。
	Detail string `json:"detail,omitempty"`
	// Payload は成功時のレスポンスデータ（JSON形式）。
	Payload json.RawMessage `json:"payload,omitempty"`
}

// writeFrame はエンベロープをJSONにシリアライズし、
// 4バイトビッグエンディアンの長さプレフィックスを付けて書き込む。
func writeFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("フレームのシリアライズに失敗: %w", err)
	}
	if len(body) > maxFrameSize {
		return fmt.Errorf("フレームサイズが上限を超過: %d bytes", len(body))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("フレームヘッダーの書き込みに失敗: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("フレーム本体の書き込みに失敗: %w", err)
	}
	return nil
}

// readFrame は長さプレフィックス付きフレームを読み込み、vにデシリアライズする。
func readFrame(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return fmt.Errorf("フレームサイズが上限を超過: %d bytes", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("フレーム本体の読み込みに失敗: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("フレームのデシリアライズに失敗: %w", err)
	}
	return nil
}
