package spider

import (
	"fmt"
	"sort"
)

// TaskStore 是按名称登记的任务表，由cmd层根据配置构建，不使用全局实例
type TaskStore struct {
	list []*Task
	hash map[string]*Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{hash: make(map[string]*Task)}
}

// Add 登记任务，名称或目录重复时返回错误
func (s *TaskStore) Add(tasks ...*Task) error {
	for _, t := range tasks {
		if _, ok := s.hash[t.Name]; ok {
			return fmt.Errorf("spider: duplicate task %q", t.Name)
		}
		for _, o := range s.list {
			if o.Dir == t.Dir {
				return fmt.Errorf("spider: tasks %q and %q share dir %q", o.Name, t.Name, t.Dir)
			}
		}
		s.hash[t.Name] = t
		s.list = append(s.list, t)
	}
	return nil
}

func (s *TaskStore) Get(name string) (*Task, bool) {
	t, ok := s.hash[name]
	return t, ok
}

// List 按登记顺序返回全部任务
func (s *TaskStore) List() []*Task {
	out := make([]*Task, len(s.list))
	copy(out, s.list)
	return out
}

func (s *TaskStore) Names() []string {
	names := make([]string, 0, len(s.list))
	for _, t := range s.list {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

/*
输入命令行给出的集合名称，输出要运行的任务

"all" 表示全部任务；未知名称返回错误并列出可选值
*/
func (s *TaskStore) Select(names ...string) ([]*Task, error) {
	if len(names) == 0 || (len(names) == 1 && names[0] == "all") {
		return s.List(), nil
	}
	out := make([]*Task, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		t, ok := s.hash[n]
		if !ok {
			return nil, fmt.Errorf("unknown collection %q, want one of %v or all", n, s.Names())
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, t)
	}
	return out, nil
}
