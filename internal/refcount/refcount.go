// Package refcount 参照カウント付きの共有ハンドルを提供する
//
// # 責務
// - 構築済みリソースの共有所有権の管理
// - カウントがゼロになった時点で解放処理を一度だけ実行する
// - 過剰なReleaseをエラーとして報告する
package refcount

import (
	"errors"
	"sync"
)

// ErrOverReleased はRetainの回数を超えてReleaseされたことを表す
var ErrOverReleased = errors.New("参照カウントが負になった(過剰なRelease)")

// ErrClosed は解放済みのハンドルをRetainしようとしたことを表す
var ErrClosed = errors.New("解放済みのハンドルは取得できない")

// RefCounted は値Tを参照カウントで共有するハンドル
// Newで作成した時点でカウントは1。Retainで増加、Releaseで減少し、
// ゼロに達した時点でcloserが一度だけ呼ばれる。
type RefCounted[T any] struct {
	mu     sync.Mutex
	count  int
	value  T
	closer func(T)
	closed bool
}

// New は参照カウント1のハンドルを作成する
// closerはカウントがゼロになった時点で一度だけ呼ばれる。nilでもよい。
func New[T any](value T, closer func(T)) *RefCounted[T] {
	return &RefCounted[T]{
		count:  1,
		value:  value,
		closer: closer,
	}
}

// Retain は参照カウントを1増やす
// 既に解放済みの場合はErrClosedを返す。
func (r *RefCounted[T]) Retain() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	r.count++
	return nil
}

// Release は参照カウントを1減らす
// ゼロに達した時点でcloserを呼ぶ。Retainの回数を超えて呼ばれた場合は
// ErrOverReleasedを返す(黙認しない)。
func (r *RefCounted[T]) Release() error {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return ErrOverReleased
	}

	r.count--
	if r.count > 0 {
		r.mu.Unlock()
		return nil
	}

	// ゼロに達したので解放する
	r.closed = true
	closer := r.closer
	value := r.value
	r.mu.Unlock()

	if closer != nil {
		closer(value)
	}
	return nil
}

// Count は現在の参照カウントを返す(リークの検証用)
func (r *RefCounted[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Value は保持している値を返す
// 解放後に呼ばないのは呼び出し側の責任。
func (r *RefCounted[T]) Value() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Closed はハンドルが解放済みかどうかを返す
func (r *RefCounted[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
