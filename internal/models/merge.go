package models

// MergeByLink дописывает incoming к existing с дедупликацией по Link.
//
// Поведение:
//   - элемент с уже встречавшимся Link заменяет прежний на его же позиции
//     (побеждает последняя запись);
//   - новые Link добавляются в конец в порядке поступления;
//   - дубликаты внутри existing тоже схлопываются;
//   - входные срезы не модифицируются.
func MergeByLink(existing, incoming []ResultItem) []ResultItem {
	out := make([]ResultItem, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	put := func(item ResultItem) {
		if i, ok := index[item.Link]; ok {
			out[i] = item
			return
		}
		index[item.Link] = len(out)
		out = append(out, item)
	}

	for _, item := range existing {
		put(item)
	}
	for _, item := range incoming {
		put(item)
	}

	return out
}

// DedupeByLink — MergeByLink для одного среза.
func DedupeByLink(items []ResultItem) []ResultItem {
	return MergeByLink(items, nil)
}
